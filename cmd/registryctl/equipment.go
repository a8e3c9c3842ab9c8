package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/equipment-registry/internal/constants"
	"github.com/equipment-registry/internal/service"
	"github.com/equipment-registry/internal/worker"

	"github.com/spf13/cobra"
)

var listQuery service.ListQuery

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出设备",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := container.EquipmentService.List(cmd.Context(), listQuery)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPRODUCT CODE\tMODEL\tUNIT\tCREATED\tINSTALLED\tDEALER")
		for _, row := range result.Data {
			installed := ""
			if row.InstallationDate != nil {
				installed = row.InstallationDate.Format(constants.DateLayout)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				row.ID,
				row.ProductCode,
				row.Model,
				row.UnitNumber,
				row.CreatedAt.Format("2006-01-02 15:04:05"),
				installed,
				row.DealerCode,
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d\n", result.Count, result.Total)
		return nil
	},
}

var labelsOut string

var labelsCmd = &cobra.Command{
	Use:   "labels <product_code>...",
	Short: "生成二维码标签 PDF",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Server.BaseURL == "" {
			return errors.New("server.base_url is required to print labels")
		}
		rows, err := container.EquipmentService.ListByCodes(cmd.Context(), args)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return errors.New("no equipment found")
		}
		labels := service.LabelsForEquipment(rows, func(token string) string {
			return container.RegistrationService.ScanURL("", token)
		})
		data, err := service.BuildLabelSheet(labels, service.DefaultLabelLayout())
		if err != nil {
			return err
		}
		if err := os.WriteFile(labelsOut, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d labels to %s\n", len(labels), labelsOut)
		return nil
	},
}

var erpPullShipment string

var erpPullCmd = &cobra.Command{
	Use:   "erp-pull",
	Short: "从 ERP 补全一批缺失的出货信息",
	Long:  `默认补全一批缺少出货信息的设备；指定 --shipment 时按出货单号拉取全部产品并入库，已存在的设备保持不变。`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		enricher := worker.NewEnricher(container.EquipmentRepo, container.ERP, cfg.ERP.SyncBatch)
		if !enricher.Enabled() {
			return errors.New("erp is not configured")
		}
		if erpPullShipment != "" {
			summary, err := enricher.ImportShipment(cmd.Context(), erpPullShipment, container.RegistrationService)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "shipment %s  created: %d  existing: %d  failed: %d\n",
				erpPullShipment, summary.Created, summary.Existing, summary.Failed)
			for _, msg := range summary.Errors {
				fmt.Fprintln(out, "  "+msg)
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d products failed", summary.Failed)
			}
			return nil
		}
		updated, err := enricher.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated %d rows\n", updated)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listQuery.Status, "status", "pending", "pending / completed / all")
	listCmd.Flags().StringVar(&listQuery.Model, "model", "", "机型")
	listCmd.Flags().StringVar(&listQuery.Search, "search", "", "产品编码 / 序列号关键字")
	listCmd.Flags().IntVar(&listQuery.Limit, "limit", 100, "条数上限")
	labelsCmd.Flags().StringVarP(&labelsOut, "out", "o", "labels.pdf", "输出文件")
	erpPullCmd.Flags().StringVar(&erpPullShipment, "shipment", "", "出货单号")

	rootCmd.AddCommand(listCmd, labelsCmd, erpPullCmd)
}
