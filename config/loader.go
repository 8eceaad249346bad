package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultEnvPrefix = "ADAPTIVERAG"
	// DefaultEnvFile 不存在时静默跳过
	DefaultEnvFile = ".env"
)

// Loader 依次叠加 默认值、YAML 文件、环境变量（含 dotenv）、服务商通用密钥变量。
// 加载不会修改进程环境。
//
//	cfg, err := config.NewLoader().WithConfigPath("config.yaml").Load()
type Loader struct {
	path       string
	prefix     string
	envFile    string
	envFileSet bool
	lookup     func(string) (string, bool)
	validators []func(*Config) error
}

func NewLoader() *Loader {
	return &Loader{prefix: DefaultEnvPrefix, envFile: DefaultEnvFile, lookup: os.LookupEnv}
}

// WithConfigPath 文件不存在时按没有配置文件处理
func (l *Loader) WithConfigPath(path string) *Loader {
	l.path = path
	return l
}

func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.prefix = prefix
	return l
}

// WithEnvFile 显式指定的文件必须存在，空串表示不读 dotenv
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile, l.envFileSet = path, true
	return l
}

// WithEnvLookup 替换进程环境，测试用
func (l *Loader) WithEnvLookup(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookup = lookup
	}
	return l
}

// WithValidator 在所有来源叠加完之后运行
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

func (l *Loader) Load() (*Config, error) {
	env, err := l.environment()
	if err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := DefaultConfig()
	if err := l.overlayFile(cfg); err != nil {
		return nil, err
	}
	for _, b := range envBindings(reflect.ValueOf(cfg).Elem(), l.prefix) {
		raw, ok := env(b.key)
		if !ok || raw == "" {
			continue
		}
		if err := assign(b.field, raw); err != nil {
			return nil, fmt.Errorf("failed to load config from env: %s: %w", b.key, err)
		}
	}
	fillProviderKeys(cfg, env)

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

// environment 进程环境优先，dotenv 只补缺
func (l *Loader) environment() (func(string) (string, bool), error) {
	if l.envFile == "" {
		return l.lookup, nil
	}
	dotenv, err := godotenv.Read(l.envFile)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !l.envFileSet:
		return l.lookup, nil
	default:
		return nil, err
	}
	proc := l.lookup
	return func(key string) (string, bool) {
		if v, ok := proc(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

// overlayFile 未知键视为错误，拼错的键不会被悄悄忽略
func (l *Loader) overlayFile(cfg *Config) error {
	if l.path == "" {
		return nil
	}
	data, err := os.ReadFile(l.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", l.path, err)
	}
	return nil
}

type envBinding struct {
	key   string
	field reflect.Value
}

// envBindings 展开 env 标签，嵌套结构体的键逐级拼接
func envBindings(v reflect.Value, prefix string) []envBinding {
	var out []envBinding
	t := v.Type()
	for i := range t.NumField() {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key, field := prefix+"_"+tag, v.Field(i)
		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeFor[time.Time]() {
			out = append(out, envBindings(field, key)...)
			continue
		}
		out = append(out, envBinding{key: key, field: field})
	}
	return out
}

// assign 支持字符串、整数、time.Duration、浮点、布尔与逗号分隔的字符串切片
func assign(field reflect.Value, raw string) error {
	switch {
	case field.Type() == reflect.TypeFor[time.Duration]():
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		var items []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		field.Set(reflect.ValueOf(items))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// providerKeyVars 服务商通用的密钥变量，按顺序取第一个非空值
var providerKeyVars = map[string][]string{
	"groq":   {"GROQ_API_KEY"},
	"openai": {"OPENAI_API_KEY"},
	"tavily": {"TAVILY_API_KEY", "tavily_search_api"},
}

// fillProviderKeys 只填仍为空的密钥，变量名由各自的 provider 决定
func fillProviderKeys(cfg *Config, env func(string) (string, bool)) {
	slots := []struct {
		key      *string
		provider string
	}{
		{&cfg.LLM.Judge.APIKey, cfg.LLM.Judge.Provider},
		{&cfg.LLM.Generator.APIKey, cfg.LLM.Generator.Provider},
		{&cfg.Embedding.APIKey, cfg.Embedding.Provider},
		{&cfg.Search.APIKey, cfg.Search.Provider},
	}
	for _, s := range slots {
		if *s.key != "" {
			continue
		}
		for _, name := range providerKeyVars[strings.ToLower(s.provider)] {
			if v, ok := env(name); ok && v != "" {
				*s.key = v
				break
			}
		}
	}
}
