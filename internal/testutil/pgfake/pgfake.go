// Package pgfake is a scripted stand-in for a pgx pool. Responses are chosen by
// matching a substring of the SQL text; every statement is recorded so tests
// can assert on what ran and inside which transaction.
package pgfake

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Result is what a scripted statement returns.
type Result struct {
	Tag     string // command tag, e.g. "SELECT 1" or "INSERT 0 1"
	Columns []string
	OIDs    []uint32 // optional, parallel to Columns
	Rows    [][]any
}

// HandlerFunc computes a response for a statement.
type HandlerFunc func(sql string, args []any) (*Result, error)

type rule struct {
	match string
	fn    HandlerFunc
}

// Call is one recorded statement.
type Call struct {
	SQL  string
	Args []any
	Tx   int // 0 outside a transaction
}

type Pool struct {
	mu        sync.Mutex
	rules     []rule
	calls     []Call
	nextTx    int
	begins    int
	commits   int
	rollbacks int

	BeginErr  error
	CommitErr error
}

func New() *Pool {
	return &Pool{}
}

// Handle registers fn for statements containing match. Later rules win.
func (p *Pool) Handle(match string, fn HandlerFunc) *Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = append(p.rules, rule{match: match, fn: fn})
	return p
}

// Respond always answers statements containing match with res.
func (p *Pool) Respond(match string, res *Result) *Pool {
	return p.Handle(match, func(string, []any) (*Result, error) { return res, nil })
}

// Fail makes statements containing match return err.
func (p *Pool) Fail(match string, err error) *Pool {
	return p.Handle(match, func(string, []any) (*Result, error) { return nil, err })
}

// Calls returns every recorded statement in order.
func (p *Pool) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Statements returns the SQL of every recorded call containing match.
func (p *Pool) Statements(match string) []string {
	var out []string
	for _, c := range p.Calls() {
		if strings.Contains(c.SQL, match) {
			out = append(out, c.SQL)
		}
	}
	return out
}

func (p *Pool) Begins() int    { p.mu.Lock(); defer p.mu.Unlock(); return p.begins }
func (p *Pool) Commits() int   { p.mu.Lock(); defer p.mu.Unlock(); return p.commits }
func (p *Pool) Rollbacks() int { p.mu.Lock(); defer p.mu.Unlock(); return p.rollbacks }

func (p *Pool) Begin(ctx context.Context) (pgx.Tx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.BeginErr != nil {
		return nil, p.BeginErr
	}
	p.nextTx++
	p.begins++
	return &Tx{pool: p, id: p.nextTx}, nil
}

func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	res, err := p.dispatch(0, sql, args)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag(res.Tag), nil
}

func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	res, err := p.dispatch(0, sql, args)
	if err != nil {
		return nil, err
	}
	return newRows(res), nil
}

func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	res, err := p.dispatch(0, sql, args)
	return &Row{res: res, err: err}
}

func (p *Pool) dispatch(tx int, sql string, args []any) (*Result, error) {
	args = stripExecModes(args)

	p.mu.Lock()
	p.calls = append(p.calls, Call{SQL: sql, Args: args, Tx: tx})
	var fn HandlerFunc
	for i := len(p.rules) - 1; i >= 0; i-- {
		if strings.Contains(sql, p.rules[i].match) {
			fn = p.rules[i].fn
			break
		}
	}
	p.mu.Unlock()

	if fn == nil {
		return &Result{Tag: commandOf(sql)}, nil
	}
	res, err := fn(sql, args)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &Result{}
	}
	if res.Tag == "" {
		res.Tag = commandOf(sql)
	}
	return res, nil
}

func stripExecModes(args []any) []any {
	out := args[:0:0]
	for _, a := range args {
		if _, ok := a.(pgx.QueryExecMode); ok {
			continue
		}
		out = append(out, a)
	}
	return out
}

func commandOf(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// Tx records statements against its own id. Methods not listed here panic
// through the nil embedded interface.
type Tx struct {
	pgx.Tx
	pool   *Pool
	id     int
	closed bool
}

func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	res, err := t.pool.dispatch(t.id, sql, args)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag(res.Tag), nil
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	res, err := t.pool.dispatch(t.id, sql, args)
	if err != nil {
		return nil, err
	}
	return newRows(res), nil
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	res, err := t.pool.dispatch(t.id, sql, args)
	return &Row{res: res, err: err}
}

func (t *Tx) Commit(ctx context.Context) error {
	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	if t.pool.CommitErr != nil {
		t.pool.rollbacks++
		return t.pool.CommitErr
	}
	t.pool.commits++
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.pool.rollbacks++
	return nil
}

// Rows implements pgx.Rows over a scripted Result.
type Rows struct {
	res    *Result
	idx    int
	closed bool
}

func newRows(res *Result) *Rows {
	return &Rows{res: res, idx: -1}
}

func (r *Rows) Close()     { r.closed = true }
func (r *Rows) Err() error { return nil }

func (r *Rows) CommandTag() pgconn.CommandTag {
	tag := r.res.Tag
	if tag == "SELECT" {
		tag = fmt.Sprintf("SELECT %d", len(r.res.Rows))
	}
	return pgconn.NewCommandTag(tag)
}

func (r *Rows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.res.Columns))
	for i, name := range r.res.Columns {
		out[i] = pgconn.FieldDescription{Name: name}
		if i < len(r.res.OIDs) {
			out[i].DataTypeOID = r.res.OIDs[i]
		}
	}
	return out
}

func (r *Rows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	if r.idx >= len(r.res.Rows) {
		r.closed = true
		return false
	}
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.idx < 0 || r.idx >= len(r.res.Rows) {
		return errors.New("pgfake: Scan called without a current row")
	}
	return scanInto(r.res.Rows[r.idx], dest)
}

func (r *Rows) Values() ([]any, error) {
	if r.idx < 0 || r.idx >= len(r.res.Rows) {
		return nil, errors.New("pgfake: Values called without a current row")
	}
	return append([]any(nil), r.res.Rows[r.idx]...), nil
}

func (r *Rows) RawValues() [][]byte { return nil }
func (r *Rows) Conn() *pgx.Conn     { return nil }

// Row implements pgx.Row.
type Row struct {
	res *Result
	err error
}

func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if r.res == nil || len(r.res.Rows) == 0 {
		return pgx.ErrNoRows
	}
	return scanInto(r.res.Rows[0], dest)
}

func scanInto(row []any, dest []any) error {
	if len(dest) != len(row) {
		return fmt.Errorf("pgfake: scanning %d values into %d destinations", len(row), len(dest))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("pgfake: destination %d is not a pointer", i)
		}
		target := dv.Elem()
		if row[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}

		src := reflect.ValueOf(row[i])
		// Allow scanning into **T for nullable columns.
		if target.Kind() == reflect.Pointer && src.Type().ConvertibleTo(target.Type().Elem()) {
			ptr := reflect.New(target.Type().Elem())
			ptr.Elem().Set(src.Convert(target.Type().Elem()))
			target.Set(ptr)
			continue
		}
		if target.Kind() == reflect.Interface {
			target.Set(src)
			continue
		}
		if !src.Type().ConvertibleTo(target.Type()) {
			return fmt.Errorf("pgfake: cannot scan %T into %s", row[i], target.Type())
		}
		target.Set(src.Convert(target.Type()))
	}
	return nil
}
