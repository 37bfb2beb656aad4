package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// applyEnvOverrides 用环境变量覆盖配置，字段通过 env/envPrefix 标签声明
func applyEnvOverrides(v interface{}, prefix string) error {
	return env.ParseWithOptions(v, env.Options{Prefix: prefix})
}

// loadDotEnv 加载 .env 文件，已存在的环境变量不会被覆盖；文件不存在时跳过
func loadDotEnv(files []string) error {
	var errs []error
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			errs = append(errs, fmt.Errorf("stat %s: %w", file, err))
			continue
		}
		if err := godotenv.Load(file); err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", file, err))
		}
	}
	return errors.Join(errs...)
}
