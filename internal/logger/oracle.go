package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

var (
	oracleMu   sync.Mutex
	oracleLog  *log.Logger
	dumpPrompt bool
)

// SetOracleWriter 设置 oracle 请求/响应的独立输出；nil 关闭。
func SetOracleWriter(w io.Writer) {
	oracleMu.Lock()
	defer oracleMu.Unlock()
	if w == nil {
		oracleLog = nil
		return
	}
	oracleLog = log.New(w, "", log.LstdFlags)
}

// EnableOraclePromptDump 控制请求中是否附带完整 prompt（DEBUG 模式开启）。
func EnableOraclePromptDump(enabled bool) {
	oracleMu.Lock()
	dumpPrompt = enabled
	oracleMu.Unlock()
}

func writeOracle(kind, agentID, marketID string, sections [][2]string) {
	oracleMu.Lock()
	l := oracleLog
	oracleMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[ORACLE][" + kind + "]")
	if agentID != "" {
		b.WriteString("[" + agentID + "]")
	}
	if marketID != "" {
		b.WriteString("[" + marketID + "]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("--- " + sec[0] + " ---\n")
		b.WriteString(sec[1])
		if !strings.HasSuffix(sec[1], "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

func LogOracleRequest(agentID, marketID, system, user string) {
	oracleMu.Lock()
	full := dumpPrompt
	oracleMu.Unlock()
	sections := [][2]string{{"USER", user}}
	if full {
		sections = append([][2]string{{"SYSTEM", system}}, sections...)
	}
	writeOracle("request", agentID, marketID, sections)
}

func LogOracleResponse(agentID, marketID, raw string) {
	writeOracle("response", agentID, marketID, [][2]string{{"RAW", raw}})
}
