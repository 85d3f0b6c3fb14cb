// Package config loads program configuration from any number of JSON, YAML, TOML or HCL sources.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"
	"github.com/ghodss/yaml"
	"github.com/hashicorp/hcl"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"epubmg/reporter"
)

// Logger describes single log destination.
type Logger struct {
	Level       string `json:"level"`
	Destination string `json:"destination"`
	Mode        string `json:"mode"`
}

// Metaguide configures document processing.
type Metaguide struct {
	// used when document encoding could not be detected
	FallbackEncoding string `json:"fallback_encoding"`
	// number of archive members (or files in directory mode) processed in parallel, 0 - number of CPUs
	Workers int `json:"workers"`
	// clear data descriptor flags on every entry of produced archives, some readers do not like them
	FixZip bool `json:"fix_zip_format"`
}

// Config has values program uses, it is not changed after BuildConfig.
type Config struct {
	// directory of the first configuration source
	Path string
	// merged sources, JSON
	raw []byte

	ConsoleLogger Logger
	FileLogger    Logger
	Metaguide     Metaguide
}

var defaultConfig = []byte(`{
  "logger": {
    "console": {
      "level": "normal"
    },
    "file": {
      "destination": "epubmg.log",
      "level": "none",
      "mode": "append"
    }
  },
  "metaguide": {
    "fallback_encoding": "utf-8",
    "workers": 0,
    "fix_zip_format": true
  }
}`)

// decodeSource parses single configuration source selecting format by file extension.
func decodeSource(fname string, data []byte) (map[string]any, error) {

	m := make(map[string]any)

	switch strings.ToLower(filepath.Ext(fname)) {
	case ".yml", ".yaml":
		js, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(js, &m); err != nil {
			return nil, err
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, err
		}
	case ".hcl":
		var v map[string]any
		if err := hcl.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		if v != nil {
			m = unwrapHCL(v).(map[string]any)
		}
	default:
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// unwrapHCL turns HCL blocks (decoded as lists of objects) into plain objects.
func unwrapHCL(v any) any {
	switch t := v.(type) {
	case []map[string]any:
		res := make(map[string]any)
		for _, m := range t {
			for k, e := range m {
				res[k] = unwrapHCL(e)
			}
		}
		return res
	case map[string]any:
		for k, e := range t {
			t[k] = unwrapHCL(e)
		}
		return t
	default:
		return v
	}
}

// layout mirrors configuration sources.
type layout struct {
	Logger struct {
		Console Logger `json:"console"`
		File    Logger `json:"file"`
	} `json:"logger"`
	Metaguide Metaguide `json:"metaguide"`
}

// readSource returns content of configuration source, "-" is STDIN. Directory where configuration is
// located is returned as well.
func readSource(fname string) ([]byte, string, error) {

	if fname == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("unable to read configuration from stdin: %w", err)
		}
		dir, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("unable to get working directory: %w", err)
		}
		return data, dir, nil
	}

	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, "", fmt.Errorf("unable to read configuration: %w", err)
	}
	dir, err := filepath.Abs(filepath.Dir(fname))
	if err != nil {
		return nil, "", fmt.Errorf("unable to get configuration directory: %w", err)
	}
	return data, dir, nil
}

// BuildConfig loads configuration. Sources are merged in order on top of built-in defaults, later values win.
// STDIN ("-") is always JSON and is read only once.
func BuildConfig(fnames ...string) (*Config, error) {

	merged := make(map[string]any)
	if err := json.Unmarshal(defaultConfig, &merged); err != nil {
		return nil, fmt.Errorf("unable to parse default configuration: %w", err)
	}

	var (
		conf      Config
		seenStdin bool
	)
	for i, fname := range fnames {
		if len(fname) == 0 || (fname == "-" && seenStdin) {
			continue
		}
		seenStdin = seenStdin || fname == "-"

		data, dir, err := readSource(fname)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			// relative paths are always resolved against location of the first configuration
			conf.Path = dir
		}

		src, err := decodeSource(fname, data)
		if err != nil {
			return nil, fmt.Errorf("unable to parse configuration %s: %w", fname, err)
		}
		if err := mergo.Merge(&merged, src, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("unable to merge configuration %s: %w", fname, err)
		}
	}

	var err error
	if conf.raw, err = json.Marshal(merged); err != nil {
		return nil, fmt.Errorf("unable to prepare configuration: %w", err)
	}

	var l layout
	if err := json.Unmarshal(conf.raw, &l); err != nil {
		return nil, fmt.Errorf("unable to read configuration: %w", err)
	}
	conf.ConsoleLogger, conf.FileLogger, conf.Metaguide = l.Logger.Console, l.Logger.File, l.Metaguide

	for name, level := range map[string]string{"console": conf.ConsoleLogger.Level, "file": conf.FileLogger.Level} {
		if !govalidator.IsIn(level, "normal", "debug", "none") {
			return nil, fmt.Errorf("unknown %s logger level: %s", name, level)
		}
	}
	if !govalidator.IsIn(conf.FileLogger.Mode, "append", "overwrite") {
		return nil, fmt.Errorf("unknown file logger mode: %s", conf.FileLogger.Mode)
	}
	if conf.Metaguide.Workers < 0 {
		conf.Metaguide.Workers = 0
	}
	return &conf, nil
}

// GetBytes returns merged configuration sources as they were read, before any validation.
func (conf *Config) GetBytes() ([]byte, error) {
	var out bytes.Buffer
	err := json.Indent(&out, conf.raw, "", "  ")
	return out.Bytes(), err
}

// GetActualBytes returns configuration values program is using, defaults included.
func (conf *Config) GetActualBytes() ([]byte, error) {

	var l layout
	l.Logger.Console, l.Logger.File, l.Metaguide = conf.ConsoleLogger, conf.FileLogger, conf.Metaguide
	return json.MarshalIndent(l, "", "  ")
}

// levels maps configured level names to the lowest enabled zap level.
var levels = map[string]zapcore.Level{
	"debug":  zapcore.DebugLevel,
	"normal": zapcore.InfoLevel,
}

func consoleEncoderConfig(stream *os.File) zapcore.EncoderConfig {

	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if colorOutput(stream) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return ec
}

// consoleCores sends errors to stderr and everything else allowed by level to stdout.
func consoleCores(level string) []zapcore.Core {

	lowest, ok := levels[level]
	if !ok {
		return nil
	}
	return []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig(os.Stdout)), zapcore.Lock(os.Stdout),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lowest <= lvl && lvl < zapcore.ErrorLevel
			})),
		zapcore.NewCore(errorEncoder{zapcore.NewConsoleEncoder(consoleEncoderConfig(os.Stderr))}, zapcore.Lock(os.Stderr),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= zapcore.ErrorLevel
			})),
	}
}

// openLogFile opens log destination, when this is impossible temporary file is used. Name of the temporary
// file is returned so it could be reported.
func openLogFile(fname, mode string) (*os.File, string, error) {

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if mode == "append" {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	if f, err := os.OpenFile(fname, flags, 0644); err == nil {
		return f, "", nil
	}
	f, err := os.CreateTemp("", "epubmg.*.log")
	if err != nil {
		return nil, "", fmt.Errorf("unable to access file log destination (%s): %w", fname, err)
	}
	return f, f.Name(), nil
}

// PrepareLog builds program logger out of console and file configuration. When debug report is requested file
// log always has debug level, it is overwritten and becomes part of the report.
func (conf *Config) PrepareLog(rpt *reporter.Report) (*zap.Logger, error) {

	cores := consoleCores(conf.ConsoleLogger.Level)

	level, mode := conf.FileLogger.Level, conf.FileLogger.Mode
	if rpt != nil {
		level, mode = "debug", "overwrite"
	}

	var redirected string
	if lowest, ok := levels[level]; ok {
		f, tmp, err := openLogFile(conf.FileLogger.Destination, mode)
		if err != nil {
			return nil, err
		}
		redirected = tmp
		rpt.Store("file.log", f.Name())
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(f), zap.NewAtomicLevelAt(lowest)))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	if len(redirected) > 0 {
		log.Warn("Log file was redirected to new location", zap.String("location", redirected))
	}
	return log, nil
}

// errorEncoder drops verbose error details (stack traces and such) from console output, file log keeps them.
type errorEncoder struct {
	zapcore.Encoder
}

func (e errorEncoder) Clone() zapcore.Encoder {
	return errorEncoder{e.Encoder.Clone()}
}

func (e errorEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {

	short := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		if err, ok := f.Interface.(error); ok && f.Type == zapcore.ErrorType {
			f.Interface = errors.New(err.Error())
		}
		short[i] = f
	}
	return e.Encoder.EncodeEntry(ent, short)
}
