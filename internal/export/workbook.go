// Package export reads and writes spreadsheet workbooks: the bet history a
// user downloads and the achievement table operators import.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mroshb/betpals/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	BetsSheet         = "Bets"
	TransactionsSheet = "Transactions"
	AchievementsSheet = "Achievements"

	timeLayout = "2006-01-02 15:04:05"
)

var (
	betHeader = []interface{}{"ID", "Title", "Status", "Amount", "Currency", "Role", "Opponent", "Result", "Created", "Resolved"}
	txHeader  = []interface{}{"ID", "Type", "Amount", "Bet-Coins", "Description", "Bet", "Created"}
)

// WriteBetHistory writes a two-sheet workbook of userID's bets and ledger.
func WriteBetHistory(w io.Writer, userID string, bets []models.Bet, txs []models.CoinTransaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", BetsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(TransactionsSheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(bets)+1)
	rows = append(rows, betHeader)
	for _, b := range bets {
		rows = append(rows, betRow(userID, b))
	}
	if err := writeSheet(f, BetsSheet, rows, bold); err != nil {
		return err
	}

	rows = rows[:0]
	rows = append(rows, txHeader)
	for _, t := range txs {
		rows = append(rows, txRow(t))
	}
	if err := writeSheet(f, TransactionsSheet, rows, bold); err != nil {
		return err
	}

	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := rows[i]
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "B", 40)
}

func betRow(userID string, b models.Bet) []interface{} {
	role, opponent := "creator", b.OpponentID
	if b.OpponentID == userID {
		role, opponent = "opponent", b.CreatorID
	} else if b.CreatorID != userID {
		role = "verifier"
	}

	currency := "USD"
	if b.IsCoinDenominated {
		currency = "bet-coins"
	}

	result := ""
	if b.WinnerID != nil {
		switch {
		case *b.WinnerID == userID:
			result = "won"
		case role == "verifier":
			result = "verified"
		default:
			result = "lost"
		}
	}

	resolved := ""
	if b.ResolvedAt != nil {
		resolved = b.ResolvedAt.UTC().Format(timeLayout)
	}

	return []interface{}{
		b.ID, b.Title, b.Status, b.Amount.StringFixed(2), currency, role, opponent, result,
		b.CreatedAt.UTC().Format(timeLayout), resolved,
	}
}

func txRow(t models.CoinTransaction) []interface{} {
	amount := ""
	if t.Amount.Valid {
		amount = t.Amount.Decimal.StringFixed(2)
	}
	coins := ""
	if t.BetCoins != nil {
		coins = strconv.FormatInt(*t.BetCoins, 10)
	}
	betID := ""
	if t.BetID != nil {
		betID = *t.BetID
	}
	return []interface{}{t.ID, t.Type, amount, coins, t.Description, betID, t.CreatedAt.UTC().Format(timeLayout)}
}

// ReadAchievements parses achievement definitions from the Achievements
// sheet (or the first sheet when absent). Columns: name, category,
// description, icon, color, metric, thresholds, rewards. Thresholds and
// rewards are lists separated by "|" or ",". The first row is a header.
func ReadAchievements(r io.Reader) ([]models.Achievement, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := AchievementsSheet
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}

	var out []models.Achievement
	for i, row := range rows {
		if i == 0 || len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		a, err := parseAchievementRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func parseAchievementRow(row []string) (models.Achievement, error) {
	col := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	optional := func(i int) *string {
		if v := col(i); v != "" {
			return &v
		}
		return nil
	}

	thresholds, err := parseInts(col(6))
	if err != nil {
		return models.Achievement{}, fmt.Errorf("thresholds: %w", err)
	}
	rewards, err := parseInts(col(7))
	if err != nil {
		return models.Achievement{}, fmt.Errorf("rewards: %w", err)
	}

	a := models.Achievement{
		Name:           col(0),
		Category:       col(1),
		Description:    optional(2),
		Icon:           optional(3),
		Color:          optional(4),
		Metric:         optional(5),
		MaxTier:        len(thresholds),
		TierThresholds: thresholds,
		TierRewards:    rewards,
	}
	if err := a.Validate(); err != nil {
		return models.Achievement{}, fmt.Errorf("invalid achievement %q: %w", a.Name, err)
	}
	return a, nil
}

func parseInts(s string) ([]int64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' })
	out := make([]int64, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// WriteAchievements writes definitions in the layout ReadAchievements reads.
func WriteAchievements(w io.Writer, achievements []models.Achievement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", AchievementsSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	rows := [][]interface{}{{"Name", "Category", "Description", "Icon", "Color", "Metric", "Thresholds", "Rewards"}}
	for _, a := range achievements {
		rows = append(rows, []interface{}{
			a.Name, a.Category, deref(a.Description), deref(a.Icon), deref(a.Color), deref(a.Metric),
			joinInts(a.TierThresholds), joinInts(a.TierRewards),
		})
	}
	if err := writeSheet(f, AchievementsSheet, rows, bold); err != nil {
		return err
	}
	return f.Write(w)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func joinInts(v []int64) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.FormatInt(n, 10)
	}
	return strings.Join(parts, "|")
}
