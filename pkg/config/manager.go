package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/junbin-yang/go-fsmkit/pkg/logger"
)

// ConfigManager 通用配置管理器
// 加载顺序：.env 文件 → 配置文件 → 环境变量覆盖
type ConfigManager struct {
	instance         interface{}  // 配置实例
	configPath       string       // 配置文件路径
	appName          string       // 应用名称
	serializer       Serializer   // 当前使用的序列化器
	forceFormat      Serializer   // 强制指定的格式（优先级最高）
	supportedFormats []Serializer // 支持的配置格式列表
	defaultPaths     []string     // 默认配置路径模板
	envPrefix        string       // 环境变量前缀
	dotEnvFiles      []string     // 需要加载的 .env 文件
	factory          func() interface{}
	log              logger.Logger
	once             sync.Once    // 确保配置只加载一次
	mu               sync.RWMutex // 读写锁
	loadErr          error        // 加载错误

	// 配置监听相关
	enableWatch           bool          // 是否启用配置监听
	watchDebounceInterval time.Duration // 防抖间隔
	watcher               *FileWatcher  // 文件监听器

	// 配置变更回调
	callbacks []func(old, new interface{})
}

// NewConfigManager 创建配置管理器实例
// cfg: 配置结构体指针（必须传入指针），其中的值作为默认值
// options: 配置选项
func NewConfigManager(cfg interface{}, options ...Option) *ConfigManager {
	if cfg == nil {
		panic("config instance cannot be nil")
	}
	if reflect.ValueOf(cfg).Kind() != reflect.Ptr {
		panic("config instance must be a pointer")
	}

	// 默认配置
	cm := &ConfigManager{
		instance:         cfg,
		appName:          "app",
		serializer:       &YAMLSerializer{},
		supportedFormats: []Serializer{&YAMLSerializer{}, &JSONSerializer{}, &INISerializer{}},
		defaultPaths: []string{
			"./{{.AppName}}",
			"{{.ExecDir}}/{{.AppName}}",
			"/etc/{{.AppName}}",
		},
		log:                   logger.Default(),
		watchDebounceInterval: DefaultDebounce,
	}

	// 应用自定义选项
	for _, opt := range options {
		opt(cm)
	}

	return cm
}

// LoadConfig 加载配置文件
// customPath: 自定义配置路径，空字符串使用默认路径
func (cm *ConfigManager) LoadConfig(customPath string) error {
	cm.once.Do(func() {
		var err error

		// 1. 加载 .env
		if err = loadDotEnv(cm.dotEnvFiles); err != nil {
			cm.loadErr = fmt.Errorf("load dotenv failed: %w", err)
			return
		}

		// 2. 处理自定义路径
		if customPath != "" {
			if err = validateConfigPath(customPath); err != nil {
				cm.loadErr = fmt.Errorf("invalid custom config path: %w", err)
				return
			}
			cm.configPath = customPath
			// 选择序列化器（强制格式 > 后缀识别 > 默认）
			cm.chooseSerializer(customPath)
		} else {
			// 3. 查找默认路径
			if cm.configPath, err = cm.findDefaultConfigPath(); err != nil {
				cm.loadErr = fmt.Errorf("default config not found: %w", err)
				return
			}
		}

		// 4. 解析配置文件
		if err = cm.parseConfigFile(cm.instance); err != nil {
			cm.loadErr = fmt.Errorf("parse config failed: %w", err)
			return
		}

		// 5. 应用环境变量覆盖
		if err = applyEnvOverrides(cm.instance, cm.envPrefix); err != nil {
			cm.loadErr = fmt.Errorf("apply env overrides failed: %w", err)
			return
		}

		// 6. 启动配置监听（如果启用）
		if cm.enableWatch {
			if err = cm.startWatch(); err != nil {
				cm.log.Warn("config watch disabled", logger.String("path", cm.configPath), logger.Err(err))
			}
		}
	})

	return cm.loadErr
}

// GetConfig 获取配置实例
// 返回值: 配置实例, 错误
func (cm *ConfigManager) GetConfig() (interface{}, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.loadErr != nil {
		return nil, cm.loadErr
	}
	if cm.instance == nil {
		return nil, errors.New("config not initialized, call LoadConfig first")
	}
	return cm.instance, nil
}

// ConfigPath 返回实际加载的配置文件路径
func (cm *ConfigManager) ConfigPath() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.configPath
}

// Format 返回当前使用的格式名称
func (cm *ConfigManager) Format() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.serializer.GetName()
}

// SaveConfig 保存配置到文件
func (cm *ConfigManager) SaveConfig() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.instance == nil || cm.configPath == "" {
		return errors.New("config not initialized")
	}

	// 序列化配置
	data, err := cm.serializer.Marshal(cm.instance)
	if err != nil {
		return fmt.Errorf("marshal config failed: %w", err)
	}

	// 先写入临时文件（避免文件损坏）
	tmpPath := cm.configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp config failed: %w", err)
	}

	// 替换原文件
	if err := os.Rename(tmpPath, cm.configPath); err != nil {
		return fmt.Errorf("rename temp config failed: %w", err)
	}

	return nil
}

// ReloadConfig 手动重新加载配置
// 新实例由 WithFactory 创建，未设置时从零值开始解析
func (cm *ConfigManager) ReloadConfig() error {
	cm.mu.RLock()
	currentPath := cm.configPath
	cm.mu.RUnlock()

	if currentPath == "" {
		return errors.New("config path not initialized")
	}
	if err := validateConfigPath(currentPath); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}

	// 创建新实例避免覆盖原数据
	newInstance := cm.createNewInstance()
	if err := cm.parseConfigFile(newInstance); err != nil {
		return fmt.Errorf("parse config failed: %w", err)
	}
	if err := applyEnvOverrides(newInstance, cm.envPrefix); err != nil {
		return fmt.Errorf("apply env overrides failed: %w", err)
	}

	cm.mu.Lock()
	oldInstance := cm.instance
	cm.instance = newInstance
	cm.loadErr = nil
	// 复制回调列表（避免死锁）
	callbacks := make([]func(old, new interface{}), len(cm.callbacks))
	copy(callbacks, cm.callbacks)
	cm.mu.Unlock()

	// 触发配置变更回调（在锁外执行）
	for _, callback := range callbacks {
		callback(oldInstance, newInstance)
	}

	return nil
}

// EnableWatch 动态启用/禁用配置监听
func (cm *ConfigManager) EnableWatch(enable bool) error {
	cm.mu.Lock()
	cm.enableWatch = enable
	path := cm.configPath
	cm.mu.Unlock()

	if enable && path != "" {
		return cm.startWatch()
	}
	cm.stopWatch()
	return nil
}

// Close 关闭配置管理器（停止监听）
func (cm *ConfigManager) Close() {
	cm.stopWatch()
}

// OnChange 注册配置变更回调
func (cm *ConfigManager) OnChange(callback func(old, new interface{})) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, callback)
}

/* ------------------------------ 内部方法 ------------------------------ */

// chooseSerializer 选择序列化器
func (cm *ConfigManager) chooseSerializer(path string) {
	// 强制格式优先级最高
	if cm.forceFormat != nil {
		cm.serializer = cm.forceFormat
		return
	}

	// 根据文件后缀选择
	ext := filepath.Ext(path)
	for _, format := range cm.supportedFormats {
		if matchesExt(format, ext) {
			cm.serializer = format
			return
		}
	}
	// 无后缀时使用默认序列化器
}

// findDefaultConfigPath 查找默认配置路径
func (cm *ConfigManager) findDefaultConfigPath() (string, error) {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)

	// 遍历默认路径模板
	for _, pathTpl := range cm.defaultPaths {
		// 替换路径变量
		basePath := replacePathVars(pathTpl, map[string]string{
			"AppName": cm.appName,
			"ExecDir": execDir,
		})

		// 先尝试无后缀文件
		if err := validateConfigPath(basePath); err == nil {
			cm.chooseSerializer(basePath)
			return basePath, nil
		}

		// 尝试带后缀的文件
		for _, format := range cm.supportedFormats {
			fullPath := basePath + format.GetFileExt()
			if err := validateConfigPath(fullPath); err == nil {
				if cm.forceFormat != nil {
					cm.serializer = cm.forceFormat
				} else {
					cm.serializer = format
				}
				return fullPath, nil
			}
		}
	}

	return "", errors.New("no valid config file found (tried default paths and formats)")
}

// startWatch 启动配置文件监听
func (cm *ConfigManager) startWatch() error {
	cm.mu.Lock()
	if cm.watcher != nil {
		cm.mu.Unlock()
		return nil
	}
	w := NewFileWatcher(cm.configPath, cm.watchDebounceInterval, cm.autoReload, cm.log)
	cm.watcher = w
	cm.mu.Unlock()

	if err := w.Start(); err != nil {
		cm.mu.Lock()
		cm.watcher = nil
		cm.mu.Unlock()
		return err
	}
	return nil
}

// stopWatch 停止配置文件监听
func (cm *ConfigManager) stopWatch() {
	cm.mu.Lock()
	w := cm.watcher
	cm.watcher = nil
	cm.mu.Unlock()

	if w != nil {
		_ = w.Close()
	}
}

// autoReload 文件变化后自动重载
func (cm *ConfigManager) autoReload(path string) {
	if err := cm.ReloadConfig(); err != nil {
		cm.log.Warn("config auto reload failed", logger.String("path", path), logger.Err(err))
		return
	}
	cm.log.Info("config auto reloaded", logger.String("path", path))
}

// parseConfigFile 解析配置文件到 dst
func (cm *ConfigManager) parseConfigFile(dst interface{}) error {
	cm.mu.RLock()
	path, serializer := cm.configPath, cm.serializer
	cm.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file failed: %w", err)
	}

	if err := serializer.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal failed (%s): %w", serializer.GetName(), err)
	}

	return nil
}

// createNewInstance 创建新的配置实例
func (cm *ConfigManager) createNewInstance() interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.factory != nil {
		return cm.factory()
	}
	return reflect.New(reflect.ValueOf(cm.instance).Elem().Type()).Interface()
}

// replacePathVars 替换路径模板变量
func replacePathVars(tpl string, vars map[string]string) string {
	result := tpl
	for k, v := range vars {
		result = strings.ReplaceAll(result, "{{."+k+"}}", v)
	}
	return result
}

// validateConfigPath 校验配置路径合法性
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", path)
		}
		return fmt.Errorf("stat path failed: %w", err)
	}

	if fi.IsDir() {
		return fmt.Errorf("path is a directory: %s", path)
	}

	return nil
}
