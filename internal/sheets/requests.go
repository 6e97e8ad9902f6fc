package sheets

import (
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/jonathan/job-scraper/internal/analytics"
)

const (
	formattedRows = 1000
	rowPixelSize  = 21

	// charts start below the top-10 tables
	chartTopRow  = 12
	chartSpacing = 20
)

// FormatRequests sets row heights on the first tab, adds the Analytics tab and
// highlights applied cells that read TRUE.
func FormatRequests(appliedColumn int) []*gsheets.Request {
	return []*gsheets.Request{
		{
			UpdateDimensionProperties: &gsheets.UpdateDimensionPropertiesRequest{
				Range: &gsheets.DimensionRange{
					Dimension:  "ROWS",
					StartIndex: 0,
					EndIndex:   formattedRows,
				},
				Properties: &gsheets.DimensionProperties{PixelSize: rowPixelSize},
				Fields:     "pixelSize",
			},
		},
		{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{
					Title:          analytics.SheetTitle,
					GridProperties: &gsheets.GridProperties{RowCount: formattedRows, ColumnCount: 26},
				},
			},
		},
		{
			AddConditionalFormatRule: &gsheets.AddConditionalFormatRuleRequest{
				Rule: &gsheets.ConditionalFormatRule{
					Ranges: []*gsheets.GridRange{{
						SheetId:          0,
						StartRowIndex:    1,
						StartColumnIndex: int64(appliedColumn),
						EndColumnIndex:   int64(appliedColumn + 1),
					}},
					BooleanRule: &gsheets.BooleanRule{
						Condition: &gsheets.BooleanCondition{
							Type:   "TEXT_EQ",
							Values: []*gsheets.ConditionValue{{UserEnteredValue: "TRUE"}},
						},
						Format: &gsheets.CellFormat{
							BackgroundColor: &gsheets.Color{Red: 0.7, Green: 0.9, Blue: 0.7},
						},
					},
				},
			},
		},
	}
}

// ChartRequest draws a chart from table, anchored below the tables in slot index.
func ChartRequest(sheetID int64, table analytics.Table, index int) *gsheets.Request {
	column := int64(table.Column)
	rows := int64(len(table.Rows)) + 1
	source := func(offset int64) *gsheets.ChartData {
		return &gsheets.ChartData{
			SourceRange: &gsheets.ChartSourceRange{
				Sources: []*gsheets.GridRange{{
					SheetId:          sheetID,
					StartRowIndex:    1,
					EndRowIndex:      rows,
					StartColumnIndex: column + offset,
					EndColumnIndex:   column + offset + 1,
				}},
			},
		}
	}

	spec := &gsheets.ChartSpec{Title: table.Title}
	if table.Type == analytics.ChartPie {
		spec.PieChart = &gsheets.PieChartSpec{
			LegendPosition: "RIGHT_LEGEND",
			Domain:         source(0),
			Series:         source(1),
		}
	} else {
		spec.BasicChart = &gsheets.BasicChartSpec{
			ChartType: string(table.Type),
			Domains:   []*gsheets.BasicChartDomain{{Domain: source(0)}},
			Series:    []*gsheets.BasicChartSeries{{Series: source(1)}},
		}
	}

	return &gsheets.Request{
		AddChart: &gsheets.AddChartRequest{
			Chart: &gsheets.EmbeddedChart{
				Spec: spec,
				Position: &gsheets.EmbeddedObjectPosition{
					OverlayPosition: &gsheets.OverlayPosition{
						AnchorCell: &gsheets.GridCoordinate{
							SheetId:     sheetID,
							RowIndex:    int64(chartTopRow + index*chartSpacing),
							ColumnIndex: 0,
						},
					},
				},
			},
		},
	}
}
