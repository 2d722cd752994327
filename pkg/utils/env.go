package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv 加载 .env 以及 .env.<env>，后者覆盖前者
func LoadEnv(env string) error {
	var loaded bool
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return err
		}
		loaded = true
	}
	if env != "" {
		name := ".env." + env
		if _, err := os.Stat(name); err == nil {
			if err := godotenv.Overload(name); err != nil {
				return err
			}
			loaded = true
		}
	}
	if !loaded {
		return fmt.Errorf("no .env file for env %q", env)
	}
	return nil
}

// GetEnv 获取环境变量
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetIntEnv 获取整数环境变量，解析失败返回0
func GetIntEnv(key string) int64 {
	return cast.ToInt64(os.Getenv(key))
}

// GetBoolEnv 获取布尔环境变量
func GetBoolEnv(key string) bool {
	return cast.ToBool(os.Getenv(key))
}

// GetFloatEnv 获取浮点环境变量
func GetFloatEnv(key string) float64 {
	return cast.ToFloat64(os.Getenv(key))
}

// GetDurationEnv 获取时长环境变量，支持 "1.5s" 或纯数字（按秒）
func GetDurationEnv(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return time.Duration(cast.ToFloat64(v) * float64(time.Second))
}
