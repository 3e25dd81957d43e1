package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	apperrors "loterias-bot/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildGame(t *testing.T, spec config.GameSpec) config.Game {
	t.Helper()
	g, err := config.BuildGame(spec)
	require.NoError(t, err)
	return g
}

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}

	path := filepath.Join(t.TempDir(), "base.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadHistoryFromWorkbook(t *testing.T) {
	game := buildGame(t, config.GameSpec{Key: "megasena", MinNum: 1, MaxNum: 60, NumBolas: 6})
	path := writeWorkbook(t, [][]interface{}{
		{"Concurso", "Data do Sorteio", "Bola1", "Bola2", "Bola3", "Bola4", "Bola5", "Bola6"},
		{2, "13/03/1996", 9, 37, 39, 41, 43, 49},
		{1, "11/03/1996", 4, 5, 30, 33, 41, 52},
		{},
		{3, "18/03/1996", 10, 11, 29, 30, 36, 47},
	})

	history, err := NewExcelLoader().LoadHistory(path, game)
	require.NoError(t, err)
	require.Equal(t, 3, history.Len())

	assert.Equal(t, "megasena", history.Variant)
	assert.Equal(t, 1, history.Draws[0].Contest, "sorted by contest")
	assert.Equal(t, []int{4, 5, 30, 33, 41, 52}, history.Draws[0].Numbers)
	assert.Equal(t, time.Date(1996, 3, 11, 0, 0, 0, 0, time.UTC), history.Draws[0].DrawnAt)
	assert.Equal(t, 3, history.Draws[2].Contest)
}

func TestLoadHistoryAuxiliaryColumns(t *testing.T) {
	game := buildGame(t, config.GameSpec{Key: "diadesorte", Kind: config.KindMonth, MinNum: 1, MaxNum: 31, NumBolas: 7})
	path := writeWorkbook(t, [][]interface{}{
		{"Concurso", "Bola1", "Bola2", "Bola3", "Bola4", "Bola5", "Bola6", "Bola7", "Mês da Sorte"},
		{1, 2, 7, 11, 19, 22, 28, 31, "Agosto"},
		{2, 1, 3, 5, 8, 13, 21, 30, 4},
	})

	history, err := NewExcelLoader().LoadHistory(path, game)
	require.NoError(t, err)
	require.Equal(t, 2, history.Len())
	assert.Equal(t, 8, history.Draws[0].Month)
	assert.Equal(t, 4, history.Draws[1].Month)
}

func TestLoadHistoryRejectsBadRows(t *testing.T) {
	game := buildGame(t, config.GameSpec{Key: "quina", MinNum: 1, MaxNum: 80, NumBolas: 5})

	wrongColumns := writeWorkbook(t, [][]interface{}{
		{"Bola1", "Bola2", "Bola3"},
		{1, 2, 3},
	})
	_, err := NewExcelLoader().LoadHistory(wrongColumns, game)
	assert.True(t, apperrors.IsDataUnavailable(err))

	duplicate := writeWorkbook(t, [][]interface{}{
		{"Bola1", "Bola2", "Bola3", "Bola4", "Bola5"},
		{1, 2, 3, 4, 4},
	})
	_, err = NewExcelLoader().LoadHistory(duplicate, game)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")

	_, err = NewExcelLoader().LoadHistory(filepath.Join(t.TempDir(), "missing.xlsx"), game)
	assert.True(t, apperrors.IsDataUnavailable(err))
}

func TestLoadHistoryFromCSV(t *testing.T) {
	game := buildGame(t, config.GameSpec{Key: "supersete", Kind: config.KindColumnar, MinNum: 0, MaxNum: 9, Columns: 7})
	path := filepath.Join(t.TempDir(), "base.csv")
	content := "Concurso,Coluna 1,Coluna 2,Coluna 3,Coluna 4,Coluna 5,Coluna 6,Coluna 7\n" +
		"1,0,0,9,9,3,3,1\n" +
		"2,5,4,3,2,1,0,9\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	history, err := NewExcelLoader().LoadHistory(path, game)
	require.NoError(t, err)
	require.Equal(t, 2, history.Len())
	assert.Equal(t, []int{0, 0, 9, 9, 3, 3, 1}, history.Draws[0].Numbers, "columns keep their order")
}

func TestAppendDrawCreatesAndExtendsWorkbook(t *testing.T) {
	game := buildGame(t, config.GameSpec{
		Key: "maismilionaria", Kind: config.KindBonus, MinNum: 1, MaxNum: 50, NumBolas: 6,
		Bonus: &config.BonusSpec{Count: 2, Min: 1, Max: 6},
	})
	path := filepath.Join(t.TempDir(), "pages", "MaisMilionaria", "data", "base.xlsx")
	l := NewExcelLoader()

	first := database.Draw{Contest: 1, Numbers: []int{3, 11, 24, 35, 41, 50}, Bonus: []int{1, 4},
		DrawnAt: time.Date(2022, 5, 28, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, l.AppendDraw(path, game, first))

	second := database.Draw{Contest: 2, Numbers: []int{1, 2, 3, 4, 5, 6}, Bonus: []int{2, 6}}
	require.NoError(t, l.AppendDraw(path, game, second))

	history, err := l.LoadHistory(path, game)
	require.NoError(t, err)
	require.Equal(t, 2, history.Len())
	assert.Equal(t, first.Numbers, history.Draws[0].Numbers)
	assert.Equal(t, []int{1, 4}, history.Draws[0].Bonus)
	assert.Equal(t, first.DrawnAt, history.Draws[0].DrawnAt)
	assert.Equal(t, []int{2, 6}, history.Draws[1].Bonus)

	assert.Error(t, l.AppendDraw(filepath.Join(t.TempDir(), "base.csv"), game, second))
}

func TestHeadersFollowCapabilities(t *testing.T) {
	team := buildGame(t, config.GameSpec{Key: "timemania", Kind: config.KindTeam, MinNum: 1, MaxNum: 80, NumBolas: 7, Teams: []string{"SANTOS/SP"}})
	headers := Headers(team)
	assert.Equal(t, "Bola7", headers[8])
	assert.Equal(t, "Time do Coração", headers[len(headers)-1])

	cols := buildGame(t, config.GameSpec{Key: "supersete", Kind: config.KindColumnar, MinNum: 0, MaxNum: 9, Columns: 7})
	assert.Equal(t, "Coluna1", Headers(cols)[2])
}
