package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/repository"
	"github.com/xuri/excelize/v2"
)

// ExportService 导出服务:规格单进度汇总导出为 Excel
type ExportService struct {
	specRepo *repository.SpecificationRepository
	itemRepo *repository.SpecItemRepository
	woRepo   *repository.WorkOrderRepository
	partRepo *repository.PartRepository
	enabled  bool
}

// NewExportService 创建导出服务
func NewExportService(repos *repository.Repositories, enabled bool) *ExportService {
	return &ExportService{
		specRepo: repos.Specification,
		itemRepo: repos.SpecItem,
		woRepo:   repos.WorkOrder,
		partRepo: repos.Part,
		enabled:  enabled,
	}
}

var specExportHeaders = []string{
	"行号", "类型", "零件编码", "描述", "需求数量", "完成数量", "单位", "状态", "备注",
}

var woExportHeaders = []string{
	"工单号", "零件", "机台", "状态", "排队位", "计划数量", "完成数量", "报废数量", "阻塞原因",
}

// ExportSpecification 导出规格单明细与工单进度
func (s *ExportService) ExportSpecification(ctx context.Context, id string) (*excelize.File, string, error) {
	if !s.enabled {
		return nil, "", domain.ErrUnsupported
	}

	spec, err := s.specRepo.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	items, err := s.itemRepo.ListBySpecification(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("list items: %w", err)
	}
	orders, err := s.woRepo.ListBySpecification(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("list work orders: %w", err)
	}

	f := excelize.NewFile()
	itemSheet := "明细"
	f.SetSheetName("Sheet1", itemSheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range specExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(itemSheet, cell, h)
		f.SetCellStyle(itemSheet, cell, cell, boldStyle)
	}

	partCodes := make(map[string]string)
	for rowIdx, item := range items {
		row := rowIdx + 2
		f.SetCellValue(itemSheet, fmt.Sprintf("A%d", row), item.LineNo)
		f.SetCellValue(itemSheet, fmt.Sprintf("B%d", row), item.ItemType)
		if item.PartID != nil {
			code, ok := partCodes[*item.PartID]
			if !ok {
				if part, err := s.partRepo.FindByID(ctx, *item.PartID); err == nil {
					code = part.Code
				}
				partCodes[*item.PartID] = code
			}
			f.SetCellValue(itemSheet, fmt.Sprintf("C%d", row), code)
		}
		f.SetCellValue(itemSheet, fmt.Sprintf("D%d", row), item.Description)
		f.SetCellValue(itemSheet, fmt.Sprintf("E%d", row), item.QtyRequired)
		f.SetCellValue(itemSheet, fmt.Sprintf("F%d", row), item.QtyDone)
		f.SetCellValue(itemSheet, fmt.Sprintf("G%d", row), item.UOM)
		f.SetCellValue(itemSheet, fmt.Sprintf("H%d", row), item.Status)
		f.SetCellValue(itemSheet, fmt.Sprintf("I%d", row), item.Comment)
	}

	woSheet := "工单"
	f.NewSheet(woSheet)
	for i, h := range woExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(woSheet, cell, h)
		f.SetCellStyle(woSheet, cell, cell, boldStyle)
	}
	for rowIdx, wo := range orders {
		row := rowIdx + 2
		f.SetCellValue(woSheet, fmt.Sprintf("A%d", row), wo.ID)
		f.SetCellValue(woSheet, fmt.Sprintf("B%d", row), wo.PartID)
		if wo.MachineID != nil {
			f.SetCellValue(woSheet, fmt.Sprintf("C%d", row), *wo.MachineID)
		}
		f.SetCellValue(woSheet, fmt.Sprintf("D%d", row), wo.Status)
		if wo.QueuePos != nil {
			f.SetCellValue(woSheet, fmt.Sprintf("E%d", row), *wo.QueuePos)
		}
		f.SetCellValue(woSheet, fmt.Sprintf("F%d", row), wo.QtyPlan)
		f.SetCellValue(woSheet, fmt.Sprintf("G%d", row), wo.QtyDone)
		f.SetCellValue(woSheet, fmt.Sprintf("H%d", row), wo.QtyScrap)
		f.SetCellValue(woSheet, fmt.Sprintf("I%d", row), wo.BlockReason)
	}

	colWidths := []float64{6, 8, 16, 30, 10, 10, 6, 10, 20}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(itemSheet, col, col, w)
		f.SetColWidth(woSheet, col, col, w)
	}

	filename := fmt.Sprintf("规格单_%s_%s.xlsx", spec.Number, time.Now().Format("20060102"))
	return f, filename, nil
}
