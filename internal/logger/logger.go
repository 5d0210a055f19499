package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Types int

const (
	Info Types = iota
	Error
	Warn
	Fatal
)

type Message struct {
	Timestamp time.Time
	Tag       string
	Message   string
	LogTypes  Types
}

type sink struct {
	mu      sync.Mutex
	console io.Writer
	dev     bool
	logFile *os.File
	logChan chan Message
	done    chan struct{}
}

// Logger writes tagged lines to the debug console (dev mode) and the log file.
type Logger struct {
	tag  string
	sink *sink
}

var (
	logManager *sink
	once       sync.Once
)

// InitLogger sets up the shared sink. console is usually the tview debug console;
// it may be nil, in which case dev output goes to the standard logger.
func InitLogger(dev bool, logPath string, console io.Writer) error {
	var initErr error
	once.Do(func() {
		s := &sink{
			console: console,
			dev:     dev,
			logChan: make(chan Message, 100),
			done:    make(chan struct{}),
		}
		if logPath != "" {
			timestamp := time.Now().Format("20060102_150405")
			fileName := fmt.Sprintf("cardadvisor_log_%s.log", timestamp)
			filePath := filepath.Join(logPath, fileName)

			file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				initErr = fmt.Errorf("open log file: %w", err)
				return
			}
			s.logFile = file
			go s.processLogs()
		}
		logManager = s
	})
	return initErr
}

// NewLogger returns a logger for tag. Before InitLogger it discards everything.
func NewLogger(tag string) *Logger {
	return &Logger{tag: tag, sink: logManager}
}

func (s *sink) processLogs() {
	defer close(s.done)
	for msg := range s.logChan {
		timestamp := msg.Timestamp.Format("2006-01-02 15:04:05")
		logMessage := fmt.Sprintf("%s [%s] %s: %s\n", timestamp, msg.Tag, msg.LogTypes.String(), msg.Message)
		s.logFile.WriteString(logMessage)
	}
}

func (l *Logger) log(logTypes Types, message string) {
	s := l.sink
	if s == nil {
		return
	}
	if s.dev {
		if s.console != nil {
			var format string
			switch logTypes {
			case Info:
				format = "[green]DEBUG (%s): %s[-]\n"
			case Warn:
				format = "[yellow]DEBUG (%s): %s[-]\n"
			default:
				format = "[red]DEBUG (%s): %s[-]\n"
			}
			fmt.Fprintf(s.console, format, l.tag, message)
		} else {
			log.Printf("[%s] %s: %s", l.tag, logTypes.String(), message)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logFile != nil {
		s.logChan <- Message{
			Timestamp: time.Now(),
			Tag:       l.tag,
			Message:   message,
			LogTypes:  logTypes,
		}
	}
}

func (l *Logger) Info(v ...interface{}) {
	l.log(Info, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l *Logger) Error(v ...interface{}) {
	l.log(Error, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l *Logger) Warn(v ...interface{}) {
	l.log(Warn, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.log(Info, fmt.Sprintf(format, v...))
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.log(Error, fmt.Sprintf(format, v...))
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.log(Warn, fmt.Sprintf(format, v...))
}

func (l *Logger) Fatal(v ...interface{}) {
	l.log(Fatal, fmt.Sprint(v...))
	Close()
	os.Exit(1)
}

// Close flushes pending file lines and closes the log file.
func Close() {
	s := logManager
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logFile == nil {
		return
	}
	close(s.logChan)
	<-s.done
	s.logFile.Close()
	s.logFile = nil
}

func (t Types) String() string {
	switch t {
	case Info:
		return "INFO"
	case Error:
		return "ERROR"
	case Warn:
		return "WARN"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}
