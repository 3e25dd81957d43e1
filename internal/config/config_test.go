package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "loterias-bot/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
database:
  host: db
  port: 3306
  username: user
  database: loterias
  password: secret
  conn_max_lifetime: 5m
app:
  log_level: debug
  statistical_suggestions: 3
  max_validations: 12
  default_validations: 20
games:
  - key: MegaSena
    name: MegaSena
    min_num: 1
    max_num: 60
    num_bolas: 6
  - key: maismilionaria
    kind: bonus
    min_num: 1
    max_num: 50
    num_bolas: 6
    bonus: {count: 2, min: 1, max: 6}
  - key: timemania
    kind: team
    min_num: 1
    max_num: 80
    num_bolas: 7
    teams: ["FLAMENGO/RJ", "SANTOS/SP"]
  - key: diadesorte
    kind: month
    min_num: 1
    max_num: 31
    num_bolas: 7
  - key: supersete
    kind: columnar
    min_num: 0
    max_num: 9
    columns: 7
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 3, cfg.App.StatisticalSuggestions)
	assert.Equal(t, 12, cfg.App.MaxValidations)
	assert.Equal(t, 12, cfg.App.DefaultValidations, "default validations are capped by the maximum")
	assert.Equal(t, 30*time.Minute, cfg.App.CacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "user:secret@tcp(db:3306)/loterias?charset=utf8mb4&parseTime=True&loc=Local", cfg.Database.GetDSN())
}

func TestBuildGamesDispatchesCapabilities(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	games, err := cfg.BuildGames()
	require.NoError(t, err)
	require.Len(t, games, 5)

	mega, ok := FindGame(games, "megasena")
	require.True(t, ok)
	assert.Equal(t, 6, mega.NumBalls())
	_, isBonus := mega.(HasBonusNumbers)
	assert.False(t, isBonus)

	mais, _ := FindGame(games, "maismilionaria")
	bonus, ok := mais.(HasBonusNumbers)
	require.True(t, ok)
	assert.Equal(t, BonusSpec{Count: 2, Min: 1, Max: 6}, bonus.BonusSpec())

	tm, _ := FindGame(games, "timemania")
	team, ok := tm.(HasTeamField)
	require.True(t, ok)
	assert.Equal(t, []string{"FLAMENGO/RJ", "SANTOS/SP"}, team.Teams())

	ds, _ := FindGame(games, "diadesorte")
	_, ok = ds.(HasMonthField)
	assert.True(t, ok)

	ss, _ := FindGame(games, "supersete")
	col, ok := ss.(IsColumnar)
	require.True(t, ok)
	assert.Equal(t, 7, col.Columns())
	assert.Equal(t, 7, ss.NumBalls())
	assert.Equal(t, 10, RangeSize(ss))
}

func TestBuildGameRejectsMissingAuxiliaryFields(t *testing.T) {
	cases := []struct {
		name  string
		spec  GameSpec
		field string
	}{
		{"bonus without spec", GameSpec{Key: "mm", Kind: KindBonus, MinNum: 1, MaxNum: 50, NumBolas: 6}, "bonus"},
		{"bonus range too small", GameSpec{Key: "mm", Kind: KindBonus, MinNum: 1, MaxNum: 50, NumBolas: 6, Bonus: &BonusSpec{Count: 3, Min: 1, Max: 2}}, "bonus.max"},
		{"team without roster", GameSpec{Key: "tm", Kind: KindTeam, MinNum: 1, MaxNum: 80, NumBolas: 7}, "teams"},
		{"columnar without columns", GameSpec{Key: "ss", Kind: KindColumnar, MinNum: 0, MaxNum: 9}, "columns"},
		{"too many balls", GameSpec{Key: "x", MinNum: 1, MaxNum: 5, NumBolas: 6}, "num_bolas"},
		{"unknown kind", GameSpec{Key: "x", Kind: "lottery", MinNum: 1, MaxNum: 60, NumBolas: 6}, "kind"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := BuildGame(c.spec)
			require.Error(t, err)
			var cfgErr *apperrors.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, c.field, cfgErr.Field)
		})
	}
}

func TestBuildGamesRejectsDuplicateKeys(t *testing.T) {
	cfg := &Config{Games: []GameSpec{
		{Key: "quina", MinNum: 1, MaxNum: 80, NumBolas: 5},
		{Key: "QUINA", MinNum: 1, MaxNum: 80, NumBolas: 5},
	}}
	_, err := cfg.BuildGames()
	assert.Error(t, err)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	t.Setenv("LOTERIAS_DB_PASSWORD", "from-env")
	t.Setenv("LOTERIAS_TELEGRAM_TOKEN", "token-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "token-env", cfg.Telegram.Token)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
