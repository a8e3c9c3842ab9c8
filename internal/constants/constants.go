package constants

// 设备登记状态常量
const (
	EquipmentStatusPending   = "pending"
	EquipmentStatusCompleted = "completed"
	EquipmentStatusAll       = "all"
)

// 扫码登记结果
const (
	IngestStatusCreated = "created"
	IngestStatusExists  = "exists"
	IssueStatusUpdated  = "updated"
)

// 未分类型号
const ModelUnclassified = "unclassified"

// 交付周期分桶
const (
	LeadTimeBucket0To7   = "0-7"
	LeadTimeBucket8To14  = "8-14"
	LeadTimeBucket15To30 = "15-30"
	LeadTimeBucket31To60 = "31-60"
	LeadTimeBucketOver60 = "60+"
)

// LeadTimeBuckets 分桶展示顺序
var LeadTimeBuckets = []string{
	LeadTimeBucket0To7,
	LeadTimeBucket8To14,
	LeadTimeBucket15To30,
	LeadTimeBucket31To60,
	LeadTimeBucketOver60,
}

// 列表与批量查询限制
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
	MaxBulkCodes     = 100
	MonthlyWindow    = 6
)

// 日期格式
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// 缓存键
const (
	CacheKeyReport        = "report:summary"
	CacheKeyStats         = "report:stats"
	CacheKeyReportVersion = "report:version"
)

// 异步任务
const (
	TaskInstallationERPSync = "installation:erp_sync"
	QueueDefault            = "default"
	QueueERP                = "erp"
)
