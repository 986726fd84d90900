// Package config 加载 yakjson 命令行配置
//
// 优先级：环境变量 YAKJSON_* > 配置文件 > 默认值。.env 文件先被载入环境。
package config

import (
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/uniyakcom/yakjson/internal/logging"
	"github.com/uniyakcom/yakjson/json"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "YAKJSON"

// Config 配置项
type Config struct {
	MaxDepth       int    `mapstructure:"max_depth"`
	Indent         string `mapstructure:"indent"`
	Spaces         bool   `mapstructure:"spaces"`
	EscapeNonASCII bool   `mapstructure:"escape_non_ascii"`
	EscapeNonBMP   bool   `mapstructure:"escape_non_bmp"`
	StrictUnicode  bool   `mapstructure:"strict_unicode"`
	Workers        int    `mapstructure:"workers"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	ErrorFormat    string `mapstructure:"error_format"`
}

// Default 默认配置
func Default() Config {
	return Config{
		MaxDepth:    json.DefaultMaxDepth,
		Indent:      "\t",
		Workers:     runtime.NumCPU(),
		LogLevel:    "info",
		LogFormat:   logging.FormatText,
		ErrorFormat: json.DefaultErrorFormat,
	}
}

// Load 读取配置
//
// path 为空时只用默认值与环境变量。envFiles 为空时尝试 ./.env，文件不存在不算错误。
func Load(path string, envFiles ...string) (Config, error) {
	if err := loadEnv(envFiles); err != nil {
		return Config{}, err
	}

	v := viper.New()
	def := Default()
	v.SetDefault("max_depth", def.MaxDepth)
	v.SetDefault("indent", def.Indent)
	v.SetDefault("spaces", def.Spaces)
	v.SetDefault("escape_non_ascii", def.EscapeNonASCII)
	v.SetDefault("escape_non_bmp", def.EscapeNonBMP)
	v.SetDefault("strict_unicode", def.StrictUnicode)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)
	v.SetDefault("error_format", def.ErrorFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "config: read %s", path)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "config: decode")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func loadEnv(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "config: load .env")
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Wrap(err, "config: load env files")
	}
	return nil
}

// Validate 校验取值范围
func (c Config) Validate() error {
	if c.MaxDepth < 0 {
		return errors.Errorf("config: max_depth must not be negative, got %d", c.MaxDepth)
	}
	if c.Workers < 0 {
		return errors.Errorf("config: workers must not be negative, got %d", c.Workers)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "config: log_level")
	}
	switch c.LogFormat {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		return errors.Errorf("config: unknown log_format %q", c.LogFormat)
	}
	if strings.Count(c.ErrorFormat, "%d") != 2 {
		return errors.Errorf("config: error_format needs two %%d verbs, got %q", c.ErrorFormat)
	}
	return nil
}

// Flags 输出标志位
func (c Config) Flags() json.Flags {
	var f json.Flags
	if c.Spaces {
		f |= json.FlagSpaces
	}
	if c.EscapeNonASCII {
		f |= json.FlagEscapeNonASCII
	}
	if c.EscapeNonBMP {
		f |= json.FlagEscapeNonBMP
	}
	return f
}

// ParserOptions 对应的解析选项
func (c Config) ParserOptions() []json.Option {
	return []json.Option{
		json.WithMaxDepth(c.MaxDepth),
		json.WithStrictUnicode(c.StrictUnicode),
		json.WithErrorFormat(c.ErrorFormat),
	}
}
