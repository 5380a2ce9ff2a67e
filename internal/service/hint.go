package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"basegraph.app/sandbox/common/llm"
	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/schema"
	"basegraph.app/sandbox/internal/store"
)

const minHintLength = 10

const fixErrorIntent = "Fix the error in my query"

const hintSystemPrompt = `You are a SQL tutor helping a student learn SQL. Your role is to provide HINTS, not complete solutions.`

const hintInstructions = `INSTRUCTIONS:
1. Provide a helpful HINT to guide the student, but do NOT give the complete solution
2. Suggest relevant SQL concepts (JOIN, GROUP BY, WHERE, ORDER BY, aggregate functions, etc.)
3. If there's an error, explain what might be wrong conceptually
4. Keep the hint concise (2-4 sentences)
5. Be encouraging and educational
6. Do not write the complete query - only guide them

Provide your hint:`

var (
	sqlFencePattern   = regexp.MustCompile("```sql\n")
	fencePattern      = regexp.MustCompile("```\n?")
	blankLinesPattern = regexp.MustCompile(`\n{3,}`)
	hintPrefixPattern = regexp.MustCompile(`(?i)^hint:\s*`)
)

type HintService interface {
	Generate(ctx context.Context, req HintRequest) (*Hint, error)
	ExplainError(ctx context.Context, workspaceID int64, query string, queryErr QueryErrorContext) (*Hint, error)
}

// QueryErrorContext is the classified error a student got back from Execute.
type QueryErrorContext struct {
	Type    string
	Message string
}

type HintRequest struct {
	WorkspaceID int64
	Query       string
	Intent      string
	Error       *QueryErrorContext
}

type Hint struct {
	Text            string
	TablesUsed      []string
	TablesAvailable []string
	HasQuery        bool
	HasIntent       bool
	IsErrorHint     bool
}

type hintService struct {
	workspaces store.WorkspaceStore
	client     llm.Client
}

// NewHintService builds a HintService. client may be nil, in which case
// every call returns ErrHintsDisabled.
func NewHintService(workspaces store.WorkspaceStore, client llm.Client) HintService {
	return &hintService{workspaces: workspaces, client: client}
}

func (s *hintService) Generate(ctx context.Context, req HintRequest) (*Hint, error) {
	if s.client == nil {
		return nil, ErrHintsDisabled
	}
	if strings.TrimSpace(req.Query) == "" && strings.TrimSpace(req.Intent) == "" {
		return nil, schema.NewRequestError("Please provide either a query attempt or describe what you're trying to achieve")
	}

	ws, err := s.workspaceWithTables(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}

	prompt := hintPrompt{tables: ws.Tables, query: req.Query, intent: req.Intent}
	isErrorHint := req.Error != nil && req.Error.Type != ""
	if isErrorHint {
		prompt.intent = fixErrorIntent
		prompt.errorContext = errorContext(*req.Error)
	}

	text, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &Hint{
		Text:            text,
		TablesUsed:      ws.TableNames(),
		TablesAvailable: ws.TableNames(),
		HasQuery:        req.Query != "",
		HasIntent:       req.Intent != "",
		IsErrorHint:     isErrorHint,
	}, nil
}

func (s *hintService) ExplainError(ctx context.Context, workspaceID int64, query string, queryErr QueryErrorContext) (*Hint, error) {
	if s.client == nil {
		return nil, ErrHintsDisabled
	}
	if strings.TrimSpace(query) == "" || (queryErr.Type == "" && queryErr.Message == "") {
		return nil, schema.NewRequestError("Workspace ID, query, and error are required")
	}

	ws, err := s.workspaceWithTables(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	text, err := s.complete(ctx, hintPrompt{
		tables:       ws.Tables,
		query:        query,
		intent:       fixErrorIntent,
		errorContext: errorContext(queryErr),
	})
	if err != nil {
		return nil, err
	}

	return &Hint{
		Text:            text,
		TablesUsed:      ws.TableNames(),
		TablesAvailable: ws.TableNames(),
		HasQuery:        true,
		IsErrorHint:     true,
	}, nil
}

func (s *hintService) workspaceWithTables(ctx context.Context, id int64) (*model.Workspace, error) {
	ws, err := loadWorkspace(ctx, s.workspaces, id)
	if err != nil {
		return nil, err
	}
	if len(ws.Tables) == 0 {
		return nil, schema.NewRequestError("No tables exist in this workspace. Create some tables first to get SQL hints.")
	}
	return ws, nil
}

func (s *hintService) complete(ctx context.Context, prompt hintPrompt) (string, error) {
	resp, err := s.client.Complete(ctx, llm.Request{
		SystemPrompt: hintSystemPrompt,
		UserPrompt:   prompt.String(),
		Temperature:  llm.Temp(0.4),
	})
	if err != nil {
		if llm.IsRetryable(ctx, err) {
			return "", fmt.Errorf("%w: %v", ErrHintsUnavailable, err)
		}
		return "", fmt.Errorf("generating hint: %w", err)
	}

	hint := cleanHintResponse(resp.Content)
	if len(hint) < minHintLength {
		slog.WarnContext(ctx, "llm returned an unusable hint", "model", s.client.Model(), "length", len(hint))
		return "", errors.New("generated hint is too short or empty")
	}
	return hint, nil
}

type hintPrompt struct {
	tables       []model.Table
	query        string
	intent       string
	errorContext string
}

func (p hintPrompt) String() string {
	var b strings.Builder
	b.WriteString("DATABASE SCHEMA:\n")
	b.WriteString(describeSchema(p.tables))
	b.WriteString("\n\n")

	if p.intent != "" {
		fmt.Fprintf(&b, "STUDENT'S GOAL:\n%s\n\n", p.intent)
	}
	if strings.TrimSpace(p.query) != "" {
		fmt.Fprintf(&b, "STUDENT'S CURRENT QUERY ATTEMPT:\n```sql\n%s\n```\n\n", p.query)
	}
	if p.errorContext != "" {
		fmt.Fprintf(&b, "ERROR ENCOUNTERED:\n%s\n\n", p.errorContext)
	}

	b.WriteString(hintInstructions)
	return b.String()
}

func describeSchema(tables []model.Table) string {
	if len(tables) == 0 {
		return "No tables exist in the workspace yet."
	}

	blocks := make([]string, 0, len(tables))
	for _, t := range tables {
		lines := []string{"Table: " + t.Name}
		for _, c := range t.Columns {
			lines = append(lines, fmt.Sprintf("  - %s (%s)", c.Name, c.DataType))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func errorContext(e QueryErrorContext) string {
	return fmt.Sprintf("Error Type: %s\nError Message: %s", e.Type, e.Message)
}

// cleanHintResponse strips markdown fences, a leading "Hint:" label and
// runs of blank lines from model output.
func cleanHintResponse(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = sqlFencePattern.ReplaceAllString(cleaned, "")
	cleaned = fencePattern.ReplaceAllString(cleaned, "")
	cleaned = blankLinesPattern.ReplaceAllString(cleaned, "\n\n")
	cleaned = hintPrefixPattern.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
