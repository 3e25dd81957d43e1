package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	"loterias-bot/internal/logger"

	"github.com/xuri/excelize/v2"
)

// Headers 新建表格时使用的表头
func Headers(game config.Game) []string {
	headers := []string{"Concurso", "Data"}

	prefix := "Bola"
	if _, ok := game.(config.IsColumnar); ok {
		prefix = "Coluna"
	}
	for i := 1; i <= game.NumBalls(); i++ {
		headers = append(headers, fmt.Sprintf("%s%d", prefix, i))
	}

	if g, ok := game.(config.HasBonusNumbers); ok {
		for i := 1; i <= g.BonusSpec().Count; i++ {
			headers = append(headers, fmt.Sprintf("Trevo%d", i))
		}
	}
	if _, ok := game.(config.HasTeamField); ok {
		headers = append(headers, "Time do Coração")
	}
	if _, ok := game.(config.HasMonthField); ok {
		headers = append(headers, "Mês da Sorte")
	}
	return headers
}

// AppendDraw 在表格末尾追加一期开奖，文件不存在时带表头新建
func (l *ExcelLoader) AppendDraw(path string, game config.Game, draw database.Draw) error {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return fmt.Errorf("append is only supported for .xlsx files: %s", path)
	}

	f, created, err := l.openOrCreate(path, game)
	if err != nil {
		return err
	}
	defer f.Close()

	sheet := l.sheetName(f)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("sheet %s has no header row", sheet)
	}

	lay := parseHeader(rows[0])
	if len(lay.numbers) != len(draw.Numbers) {
		return fmt.Errorf("sheet has %d number columns, draw has %d numbers", len(lay.numbers), len(draw.Numbers))
	}

	rowNum := len(rows) + 1
	set := func(col int, value interface{}) error {
		name, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, name, value)
	}

	if lay.contest >= 0 {
		if err := set(lay.contest, draw.Contest); err != nil {
			return err
		}
	}
	if lay.date >= 0 && !draw.DrawnAt.IsZero() {
		if err := set(lay.date, draw.DrawnAt.Format("02/01/2006")); err != nil {
			return err
		}
	}
	for i, col := range lay.numbers {
		if err := set(col, draw.Numbers[i]); err != nil {
			return err
		}
	}
	for i, col := range lay.bonus {
		if i < len(draw.Bonus) {
			if err := set(col, draw.Bonus[i]); err != nil {
				return err
			}
		}
	}
	if lay.team >= 0 && draw.Team != "" {
		if err := set(lay.team, draw.Team); err != nil {
			return err
		}
	}
	if lay.month >= 0 && draw.Month != 0 {
		if err := set(lay.month, draw.Month); err != nil {
			return err
		}
	}

	if created {
		err = f.SaveAs(path)
	} else {
		err = f.Save()
	}
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}

	logger.WithGame(game.Key()).Infof("Appended contest %d to %s", draw.Contest, path)
	return nil
}

func (l *ExcelLoader) openOrCreate(path string, game config.Game) (*excelize.File, bool, error) {
	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("failed to open Excel file: %w", err)
		}
		return f, false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, fmt.Errorf("failed to create data directory: %w", err)
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if l.Sheet != "" && l.Sheet != sheet {
		if err := f.SetSheetName(sheet, l.Sheet); err != nil {
			f.Close()
			return nil, false, err
		}
		sheet = l.Sheet
	}

	headers := Headers(game)
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		f.Close()
		return nil, false, fmt.Errorf("failed to write headers: %w", err)
	}
	return f, true, nil
}
