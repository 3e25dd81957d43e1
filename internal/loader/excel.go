package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	apperrors "loterias-bot/internal/errors"
	"loterias-bot/internal/logger"

	"github.com/xuri/excelize/v2"
)

var (
	numberHeader  = regexp.MustCompile(`(?i)^(bola|coluna|dezena)`)
	bonusHeader   = regexp.MustCompile(`(?i)^(trevo|bonus)`)
	contestHeader = regexp.MustCompile(`(?i)^concurso`)
	dateHeader    = regexp.MustCompile(`(?i)^data`)
	teamHeader    = regexp.MustCompile(`(?i)^time`)
	monthHeader   = regexp.MustCompile(`(?i)^m[eê]s`)
)

var dateLayouts = []string{"02/01/2006", "2006-01-02", "01-02-06"}

// layout 表头中各字段所在的列（从0开始，-1表示不存在）
type layout struct {
	numbers []int
	bonus   []int
	contest int
	date    int
	team    int
	month   int
}

// ExcelLoader 从xlsx/csv文件读取开奖历史
type ExcelLoader struct {
	// Sheet 读取的工作表，为空时使用第一个
	Sheet string
}

// NewExcelLoader 创建表格加载器
func NewExcelLoader() *ExcelLoader {
	return &ExcelLoader{}
}

// LoadHistory 读取表格并按期号升序返回历史
func (l *ExcelLoader) LoadHistory(path string, game config.Game) (*database.History, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.NewDataUnavailable(game.Key(), err)
	}

	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		rows, err = readCSV(path)
	} else {
		rows, err = l.readSheet(path)
	}
	if err != nil {
		return nil, apperrors.NewDataUnavailable(game.Key(), err)
	}

	history, err := parseRows(rows, game)
	if err != nil {
		return nil, apperrors.NewDataUnavailable(game.Key(), fmt.Errorf("%s: %w", path, err))
	}

	logger.WithGame(game.Key()).Infof("Loaded %d draws from %s", history.Len(), path)
	return history, nil
}

func (l *ExcelLoader) readSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := l.sheetName(f)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func (l *ExcelLoader) sheetName(f *excelize.File) string {
	if l.Sheet != "" {
		return l.Sheet
	}
	return f.GetSheetName(0)
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// parseHeader 识别表头
func parseHeader(header []string) layout {
	lay := layout{contest: -1, date: -1, team: -1, month: -1}
	for i, raw := range header {
		h := strings.TrimSpace(raw)
		switch {
		case numberHeader.MatchString(h):
			lay.numbers = append(lay.numbers, i)
		case bonusHeader.MatchString(h):
			lay.bonus = append(lay.bonus, i)
		case contestHeader.MatchString(h) && lay.contest < 0:
			lay.contest = i
		case dateHeader.MatchString(h) && lay.date < 0:
			lay.date = i
		case teamHeader.MatchString(h) && lay.team < 0:
			lay.team = i
		case monthHeader.MatchString(h) && lay.month < 0:
			lay.month = i
		}
	}
	return lay
}

// parseRows 将原始行转换为历史，逐行校验号码
func parseRows(rows [][]string, game config.Game) (*database.History, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty sheet")
	}

	lay := parseHeader(rows[0])
	if len(lay.numbers) != game.NumBalls() {
		return nil, fmt.Errorf("found %d number columns, %s expects %d", len(lay.numbers), game.Key(), game.NumBalls())
	}

	min, max := game.Range()
	history := &database.History{Variant: game.Key()}

	for i, row := range rows[1:] {
		line := i + 2
		if blankRow(row) {
			continue
		}

		draw := database.Draw{Contest: history.Len() + 1}
		for _, col := range lay.numbers {
			n, err := parseInt(cell(row, col))
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", line, err)
			}
			draw.Numbers = append(draw.Numbers, n)
		}

		var err error
		if cg, ok := game.(config.IsColumnar); ok {
			err = database.ValidateColumns(draw.Numbers, cg.Columns(), min, max)
		} else {
			err = database.ValidateSet(draw.Numbers, game.NumBalls(), min, max)
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		if lay.contest >= 0 && cell(row, lay.contest) != "" {
			if draw.Contest, err = parseInt(cell(row, lay.contest)); err != nil {
				return nil, fmt.Errorf("row %d contest: %w", line, err)
			}
		}
		if lay.date >= 0 {
			draw.DrawnAt = parseDate(cell(row, lay.date))
		}
		for _, col := range lay.bonus {
			if v := cell(row, col); v != "" {
				n, err := parseInt(v)
				if err != nil {
					return nil, fmt.Errorf("row %d bonus: %w", line, err)
				}
				draw.Bonus = append(draw.Bonus, n)
			}
		}
		if lay.team >= 0 {
			draw.Team = strings.TrimSpace(cell(row, lay.team))
		}
		if lay.month >= 0 {
			draw.Month = database.ParseMonth(cell(row, lay.month))
		}

		history.Draws = append(history.Draws, draw)
	}

	if lay.contest >= 0 {
		sort.SliceStable(history.Draws, func(i, j int) bool {
			return history.Draws[i].Contest < history.Draws[j].Contest
		})
	}
	return history, nil
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseInt 解析整数，兼容 "04" 与 "4.0" 这类单元格格式
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return int(f), nil
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	logger.Debugf("Unrecognised date %q", s)
	return time.Time{}
}
