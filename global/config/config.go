package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson/primitive"

	mongoutil "WChat/data/database/mgo/mongoutil"
	"WChat/logger"
	"WChat/tools/ids"
)

// ===== 应用配置 =====

// AppConfig 全部来自环境变量（.env 可选），启动时装载一次
type AppConfig struct {
	Port      string // 监听端口
	ClientURL string // 前端地址，CORS 放行用

	MongoURI      string
	MongoDatabase string

	JwtSecret    string
	CookieSecure bool // https 部署时置 true，SameSite=None 需要它

	TypingTTL time.Duration // 输入指示自动清除
	NodeID    int64         // 雪花 ID 节点号
}

var (
	once sync.Once
	conf AppConfig
)

// Boot 装载配置并初始化依赖它的全局组件
func Boot() *AppConfig {
	once.Do(func() {
		// .env 不存在不是错误，生产环境直接用进程环境变量
		if err := godotenv.Load(); err == nil {
			logger.Infof("[Config] .env loaded")
		}

		conf = AppConfig{
			Port:          getEnv("PORT", "5000"),
			ClientURL:     getEnv("CLIENT_URL", "http://localhost:5173"),
			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnv("MONGO_DB", "wchat"),
			JwtSecret:     getEnv("JWT_SECRET", ""),
			CookieSecure:  getEnvBool("COOKIE_SECURE", false),
			TypingTTL:     getEnvDuration("TYPING_TTL", 10*time.Second),
			NodeID:        getEnvInt("NODE_ID", 1),
		}
		if conf.JwtSecret == "" {
			logger.Warnf("[Config] JWT_SECRET is empty, tokens will not survive restarts safely")
		}

		ConfigIds()
		ConfigValidator()
	})
	return &conf
}

func Get() *AppConfig { return &conf }

func GetJwtSecret() string { return conf.JwtSecret }

// ===== 组件初始化 =====

func ConfigIds() {
	ids.SetNodeID(conf.NodeID)
}

// ConfigMgo 组装 Mongo 连接配置
func ConfigMgo() *mongoutil.Config {
	return &mongoutil.Config{
		Uri:      conf.MongoURI,
		Database: conf.MongoDatabase,
	}
}

// ConfigValidator 给 gin 的 binding 校验器挂 objectid 规则
func ConfigValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		_, err := primitive.ObjectIDFromHex(fl.Field().String())
		return err == nil
	})
}

// ===== 环境变量读取 =====

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
