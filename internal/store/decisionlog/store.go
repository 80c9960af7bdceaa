package decisionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"agentdesk/internal/decision"

	_ "modernc.org/sqlite"
)

// DecisionLogStore 记录每次 oracle 调用的输入/输出，便于排查与前端展示。
type DecisionLogStore struct {
	mu sync.Mutex
	db *sql.DB
}

// DecisionLogRecord 代表一条日志记录。
type DecisionLogRecord struct {
	ID         int64              `json:"id"`
	Timestamp  int64              `json:"ts"`
	AgentID    string             `json:"agent_id"`
	MarketID   string             `json:"market_id"`
	ProviderID string             `json:"provider_id"`
	System     string             `json:"system_prompt"`
	User       string             `json:"user_prompt"`
	RawOutput  string             `json:"raw_output"`
	Decision   *decision.Decision `json:"decision,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Query 用于筛选日志，Limit 缺省 50。
type Query struct {
	AgentID  string
	MarketID string
	Limit    int
	Offset   int
}

const defaultQueryLimit = 50

// NewDecisionLogStore 初始化 SQLite 存储。
func NewDecisionLogStore(path string) (*DecisionLogStore, error) {
	if path == "" {
		return nil, fmt.Errorf("decision log path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DecisionLogStore{db: db}, nil
}

func (s *DecisionLogStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS oracle_decision_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			market_id TEXT NOT NULL,
			provider_id TEXT,
			system_prompt TEXT,
			user_prompt TEXT,
			raw_output TEXT,
			decision_json TEXT,
			error TEXT,
			created_at INTEGER NOT NULL
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_oracle_logs_agent_ts ON oracle_decision_logs(agent_id, ts DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_oracle_logs_market ON oracle_decision_logs(market_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *DecisionLogStore) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("decision log store 未初始化")
	}
	return s.db, nil
}

// Insert 写入一条记录并返回自增 id。
func (s *DecisionLogStore) Insert(ctx context.Context, rec DecisionLogRecord) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	now := time.Now().UnixMilli()
	ts := rec.Timestamp
	if ts == 0 {
		ts = now
	}
	decisionJSON := ""
	if rec.Decision != nil {
		if b, err := json.Marshal(rec.Decision); err == nil {
			decisionJSON = string(b)
		}
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO oracle_decision_logs
			(ts, agent_id, market_id, provider_id, system_prompt, user_prompt, raw_output, decision_json, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts,
		rec.AgentID,
		rec.MarketID,
		rec.ProviderID,
		rec.System,
		rec.User,
		rec.RawOutput,
		decisionJSON,
		rec.Error,
		now,
	)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// RecordDecision 满足 decision.Recorder。
func (s *DecisionLogStore) RecordDecision(ctx context.Context, rec decision.Record) error {
	var ts int64
	if !rec.Timestamp.IsZero() {
		ts = rec.Timestamp.UnixMilli()
	}
	_, err := s.Insert(ctx, DecisionLogRecord{
		Timestamp:  ts,
		AgentID:    rec.AgentID,
		MarketID:   rec.MarketID,
		ProviderID: rec.ProviderID,
		System:     rec.System,
		User:       rec.User,
		RawOutput:  rec.RawOutput,
		Decision:   rec.Decision,
		Error:      rec.Error,
	})
	return err
}

func buildFilter(q Query) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	if agent := strings.ToUpper(strings.TrimSpace(q.AgentID)); agent != "" {
		clauses = append(clauses, "agent_id = ?")
		args = append(args, agent)
	}
	if market := strings.TrimSpace(q.MarketID); market != "" {
		clauses = append(clauses, "market_id = ?")
		args = append(args, market)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListDecisions 按时间倒序返回日志。
func (s *DecisionLogStore) ListDecisions(ctx context.Context, q Query) ([]DecisionLogRecord, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	where, args := buildFilter(q)
	args = append(args, limit, max(q.Offset, 0))
	rows, err := db.QueryContext(ctx, `
		SELECT id, ts, agent_id, market_id, provider_id, system_prompt, user_prompt, raw_output, decision_json, error
		FROM oracle_decision_logs`+where+`
		ORDER BY ts DESC, id DESC
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DecisionLogRecord
	for rows.Next() {
		var (
			rec                              DecisionLogRecord
			provider, system, user, raw, dec sql.NullString
			errText                          sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.AgentID, &rec.MarketID,
			&provider, &system, &user, &raw, &dec, &errText); err != nil {
			return nil, err
		}
		rec.ProviderID = provider.String
		rec.System = system.String
		rec.User = user.String
		rec.RawOutput = raw.String
		rec.Error = errText.String
		if dec.String != "" {
			var d decision.Decision
			if json.Unmarshal([]byte(dec.String), &d) == nil {
				rec.Decision = &d
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountDecisions 返回满足过滤条件的记录数。
func (s *DecisionLogStore) CountDecisions(ctx context.Context, q Query) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	where, args := buildFilter(q)
	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(1) FROM oracle_decision_logs`+where, args...).Scan(&n)
	return n, err
}

var _ decision.Recorder = (*DecisionLogStore)(nil)
