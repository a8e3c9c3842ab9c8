package main

import (
	"fmt"
	"os"

	"github.com/equipment-registry/internal/service"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import-xlsx <file>",
	Short: "从 ERP 出货清单导入设备",
	Long:  `读取 xlsx 出货清单（支持中英韩表头），逐行入库。已存在的设备保持不变。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		items, err := service.ParseShipmentSheet(f)
		if err != nil {
			return err
		}
		summary := container.RegistrationService.ImportShipments(cmd.Context(), items)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "rows: %d  created: %d  existing: %d  failed: %d\n",
			len(items), summary.Created, summary.Existing, summary.Failed)
		for _, msg := range summary.Errors {
			fmt.Fprintln(out, "  "+msg)
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d rows failed", summary.Failed)
		}
		return nil
	},
}

var (
	exportOut   string
	exportQuery service.ListQuery
)

var exportCmd = &cobra.Command{
	Use:   "export-xlsx",
	Short: "导出设备台账",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := container.EquipmentService.Export(cmd.Context(), exportQuery)
		if err != nil {
			return err
		}
		data, err := service.ExportEquipmentXLSX(rows)
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportOut, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", len(rows), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "equipment.xlsx", "输出文件")
	exportCmd.Flags().StringVar(&exportQuery.Status, "status", "all", "pending / completed / all")
	exportCmd.Flags().StringVar(&exportQuery.FromDate, "from", "", "创建日期起 (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportQuery.ToDate, "to", "", "创建日期止 (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportQuery.Model, "model", "", "机型")

	rootCmd.AddCommand(importCmd, exportCmd)
}
