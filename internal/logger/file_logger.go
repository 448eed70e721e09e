package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes analysis activity to a per-symbol daily log file.
type Logger struct {
	symbol  string
	logFile *os.File
	logger  *log.Logger
	mu      sync.Mutex
	logDir  string
}

// Level tags the kind of log entry.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARN"
	LevelError   Level = "ERROR"
	LevelSignal  Level = "SIGNAL"
	LevelTrade   Level = "TRADE"
	LevelStatus  Level = "STATUS"
)

// New creates a file logger for the given symbol under dir (default "logs").
func New(symbol, dir string) (*Logger, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.log", symbol, time.Now().Format("2006-01-02"))
	logPath := filepath.Join(dir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		symbol:  symbol,
		logFile: file,
		logger:  log.New(file, "", 0),
		logDir:  dir,
	}
	l.writeSessionHeader()
	return l, nil
}

func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
ANALYSIS SESSION STARTED
================================================================================
Symbol: %s
Started: %s
================================================================================
`, l.symbol, time.Now().Format("2006-01-02 15:04:05"))

	l.logger.Print(header)
}

// Log writes one formatted entry at the given level.
func (l *Logger) Log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] [%s] %s", timestamp, level, message)
}

// Info logs an info message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LevelInfo, format, args...)
}

// Warning logs a warning message.
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LevelWarning, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LevelError, format, args...)
}

// Signal logs an entry or exit instruction.
func (l *Logger) Signal(action string, price, profitPct float64, reason string) {
	if reason == "" {
		l.Log(LevelSignal, "%s @ %.4f", action, price)
		return
	}
	l.Log(LevelSignal, "%s @ %.4f (%s, pnl %.2f%%)", action, price, reason, profitPct)
}

// TradeClosed logs a completed round trip.
func (l *Logger) TradeClosed(entryPrice, exitPrice, pnlPercent float64, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.logger.Printf(`
[%s] [TRADE] ==================== TRADE CLOSED ====================
Entry: %.4f | Exit: %.4f
PnL: %.2f%% | Reason: %s
=========================================================`,
		timestamp, entryPrice, exitPrice, pnlPercent, reason)
}

// MarketStatus logs a periodic snapshot of price and derived metrics.
func (l *Logger) MarketStatus(price float64, metrics map[string]float64, positionActive bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := fmt.Sprintf(`
[%s] [STATUS] ==================== MARKET STATUS ====================
Price: %.4f | Position: %s
Volatility: %.4f | ATR: %.4f | Trend: %.4f
RS: %.4f | Imbalance: %.4f | Efficiency: %.4f
==========================================================`,
		timestamp, price, positionLabel(positionActive),
		metrics["realized_volatility"], metrics["atr"], metrics["trend_strength"],
		metrics["relative_strength"], metrics["order_imbalance"], metrics["market_efficiency_ratio"])

	l.logger.Println(status)
}

func positionLabel(active bool) string {
	if active {
		return "ACTIVE"
	}
	return "FLAT"
}

// LogError logs an error with a context label.
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// Path returns the current log file path.
func (l *Logger) Path() string {
	filename := fmt.Sprintf("%s_%s.log", l.symbol, time.Now().Format("2006-01-02"))
	return filepath.Join(l.logDir, filename)
}

// Close writes the session footer and closes the file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return nil
	}
	l.logger.Printf(`
================================================================================
ANALYSIS SESSION ENDED
================================================================================
Ended: %s
================================================================================
`, time.Now().Format("2006-01-02 15:04:05"))
	return l.logFile.Close()
}
