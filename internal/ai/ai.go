package ai

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Assistant answers shop questions with Gemini, grounding the prompt with
// small database summaries triggered by keywords in the question.
type Assistant struct {
	client *genai.Client
	db     *sql.DB
	log    *zap.Logger
}

func NewAssistant(ctx context.Context, apiKey string, db *sql.DB, log *zap.Logger) (*Assistant, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Assistant{client: client, db: db, log: log}, nil
}

func (a *Assistant) Close() error {
	return a.client.Close()
}

// Ask answers one question for the given user. Context injection is keyword
// based: each trigger that appears in the question pulls one scoped summary
// query. Swapping in ranked retrieval later only needs to replace
// buildContext.
func (a *Assistant) Ask(ctx context.Context, question string, userID int64, userRole string) (string, error) {
	dbContext := a.buildContext(ctx, question, userID, userRole)

	model := a.client.GenerativeModel("gemini-1.5-flash")
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(fmt.Sprintf(
			"You are the Breakfast Factory shop assistant. You are talking to a %s. "+
				"Answer concisely. Use only the store data provided below; if it does "+
				"not cover the question, say so.\n\nStore data:\n%s",
			userRole, dbContext))},
	}

	res, err := model.GenerateContent(ctx, genai.Text(question))
	if err != nil {
		return "", fmt.Errorf("error generating response: %w", err)
	}
	if len(res.Candidates) == 0 || len(res.Candidates[0].Content.Parts) == 0 {
		return "No response.", nil
	}
	return fmt.Sprintf("%v", res.Candidates[0].Content.Parts[0]), nil
}

// contextTriggers maps question keywords to the summary each one injects.
var contextTriggers = []struct {
	keyword string
	builder func(a *Assistant, ctx context.Context, userID int64, userRole string) (string, error)
}{
	{"sales", (*Assistant).salesSummary},
	{"stock", (*Assistant).stockSummary},
	{"best selling", (*Assistant).topProductsSummary},
}

func (a *Assistant) buildContext(ctx context.Context, question string, userID int64, userRole string) string {
	lower := strings.ToLower(question)

	var sections []string
	for _, t := range contextTriggers {
		if !strings.Contains(lower, t.keyword) {
			continue
		}
		section, err := t.builder(a, ctx, userID, userRole)
		if err != nil {
			a.log.Warn("AI context query failed", zap.String("keyword", t.keyword), zap.Error(err))
			continue
		}
		sections = append(sections, section)
	}

	if len(sections) == 0 {
		return "(no store data matched this question)"
	}
	return strings.Join(sections, "\n")
}

func (a *Assistant) salesSummary(ctx context.Context, userID int64, userRole string) (string, error) {
	query := `
		SELECT COUNT(DISTINCT oi.order_id), COALESCE(SUM(oi.unit_price * oi.quantity), 0)
		FROM order_items oi
		WHERE oi.outlet_id = ?`
	args := []any{userID}
	if userRole == "admin" {
		query = `SELECT COUNT(DISTINCT oi.order_id), COALESCE(SUM(oi.unit_price * oi.quantity), 0) FROM order_items oi`
		args = nil
	}

	var orders int
	var revenue float64
	if err := a.db.QueryRowContext(ctx, query, args...).Scan(&orders, &revenue); err != nil {
		return "", err
	}
	return fmt.Sprintf("Sales to date: %d orders, total revenue %.2f.", orders, revenue), nil
}

func (a *Assistant) stockSummary(ctx context.Context, userID int64, userRole string) (string, error) {
	query := `
		SELECT name, quantity FROM products
		WHERE outlet_id = ? AND quantity < 10
		ORDER BY quantity ASC LIMIT 10`
	args := []any{userID}
	if userRole == "admin" {
		query = `SELECT name, quantity FROM products WHERE quantity < 10 ORDER BY quantity ASC LIMIT 10`
		args = nil
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var name string
		var qty int
		if err := rows.Scan(&name, &qty); err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("- %s: %d left", name, qty))
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "Low stock: none, every product has 10 or more units.", nil
	}
	return "Low stock products (under 10 units):\n" + strings.Join(lines, "\n"), nil
}

func (a *Assistant) topProductsSummary(ctx context.Context, userID int64, userRole string) (string, error) {
	query := `
		SELECT oi.product_name, SUM(oi.unit_price * oi.quantity) AS revenue
		FROM order_items oi
		WHERE oi.outlet_id = ?
		GROUP BY oi.product_name
		ORDER BY revenue DESC LIMIT 5`
	args := []any{userID}
	if userRole == "admin" {
		query = `
			SELECT oi.product_name, SUM(oi.unit_price * oi.quantity) AS revenue
			FROM order_items oi
			GROUP BY oi.product_name
			ORDER BY revenue DESC LIMIT 5`
		args = nil
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var name string
		var revenue float64
		if err := rows.Scan(&name, &revenue); err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("- %s: %.2f revenue", name, revenue))
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "Best sellers: no completed sales yet.", nil
	}
	return "Best selling products by revenue:\n" + strings.Join(lines, "\n"), nil
}
