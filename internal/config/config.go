package config

import "github.com/zeromicro/go-zero/rest"

type Config struct {
	rest.RestConf
	Auth       AuthConfig
	OpenAI     OpenAIConfig
	Avatar     AvatarConfig
	Compositor CompositorConfig
	Publisher  PublisherConfig
	Credit     CreditConfig
	Reconcile  ReconcileConfig
	Redis      RedisConfig
	MySQL      MySQLConfig
}

type AuthConfig struct {
	Secret      string
	ExpireHours int
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type AvatarConfig struct {
	BaseURL string
	APIKey  string
}

type CompositorConfig struct {
	BaseURL         string
	APIKey          string
	WebhookURL      string
	DefaultTemplate string
	BasicTemplate   string
	ProTemplate     string
}

type PublisherConfig struct {
	BaseURL             string
	Platform            string
	MaxAttempts         int
	BackoffBaseMs       int
	PollIntervalSeconds int
	MaxPollChecks       int
	MaxPollAgeHours     int
}

type CreditConfig struct {
	RenderCost  int
	PlanCredits map[string]int
}

type ReconcileConfig struct {
	Workers         int
	IntervalSeconds int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}
