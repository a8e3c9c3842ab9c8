package public

import (
	handlershared "github.com/equipment-registry/internal/http/handlers/shared"
	"github.com/equipment-registry/internal/http/response"
	"github.com/equipment-registry/internal/service"

	"github.com/gin-gonic/gin"
)

type mappedHandlerError = handlershared.MappedError

// 错误类别兜底规则，放在具体规则之后
var kindErrorRules = []mappedHandlerError{
	{Target: service.ErrValidation, Code: response.CodeBadRequest, Key: "error.bad_request"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.not_found"},
	{Target: service.ErrConflict, Code: response.CodeBadRequest, Key: "error.already_registered"},
}

var scanQRErrorRules = []mappedHandlerError{
	{Target: service.ErrQRDataEmpty, Code: response.CodeBadRequest, Key: "error.qr_data_empty"},
	{Target: service.ErrQRFormatInvalid, Code: response.CodeBadRequest, Key: "error.qr_format_invalid"},
	{Target: service.ErrQRRequiredField, Code: response.CodeBadRequest, Key: "error.qr_required_field"},
	{Target: service.ErrRequiredMissing, Code: response.CodeBadRequest, Key: "error.qr_required_field"},
}

var commitErrorRules = []mappedHandlerError{
	{Target: service.ErrRequiredMissing, Code: response.CodeBadRequest, Key: "error.required_missing"},
	{Target: service.ErrDealerRequired, Code: response.CodeBadRequest, Key: "error.dealer_required"},
	{Target: service.ErrEquipmentIDInvalid, Code: response.CodeBadRequest, Key: "error.equipment_id_invalid"},
	{Target: service.ErrInstallationDateInvalid, Code: response.CodeBadRequest, Key: "error.installation_date_invalid"},
	{Target: service.ErrEquipmentNotFound, Code: response.CodeNotFound, Key: "error.equipment_not_found"},
	{Target: service.ErrAlreadyRegistered, Code: response.CodeBadRequest, Key: "error.already_registered"},
}

var scanPageErrorRules = []mappedHandlerError{
	{Target: service.ErrEquipmentNotFound, Code: response.CodeNotFound, Key: "error.invalid_qr_code"},
}

var issueErrorRules = []mappedHandlerError{
	{Target: service.ErrIssueFieldsRequired, Code: response.CodeBadRequest, Key: "error.issue_fields_required"},
	{Target: service.ErrDateInvalid, Code: response.CodeBadRequest, Key: "error.date_invalid"},
	{Target: service.ErrRequiredMissing, Code: response.CodeBadRequest, Key: "error.issue_fields_required"},
}

func respondScanQRError(c *gin.Context, err error) {
	respondWithMappedError(c, err, handlershared.ConcatMappedErrors(scanQRErrorRules, kindErrorRules), response.CodeInternal, "error.internal")
}

func respondCommitError(c *gin.Context, err error) {
	respondWithMappedError(c, err, handlershared.ConcatMappedErrors(commitErrorRules, kindErrorRules), response.CodeInternal, "error.internal")
}

func respondIssueError(c *gin.Context, err error) {
	respondWithMappedError(c, err, handlershared.ConcatMappedErrors(issueErrorRules, kindErrorRules), response.CodeInternal, "error.internal")
}
