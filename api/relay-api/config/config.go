// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AppConfig is the relay service configuration, sourced from environment
// variables (optionally an .env file via ENV_PATH).
type AppConfig struct {
	ServiceName string `mapstructure:"service_name" validate:"required"`
	LogLevel    string `mapstructure:"log_level" validate:"required"`

	// gRPC listeners
	AudioGRPCPort    int `mapstructure:"audio_grpc_port" validate:"required"`
	SemanticGRPCPort int `mapstructure:"semantic_grpc_port" validate:"required"`
	ChatbotGRPCPort  int `mapstructure:"chatbot_grpc_port" validate:"required"`

	// RTP / socket hub
	AudioPortMin      int    `mapstructure:"audio_port_min" validate:"required"`
	AudioPortMax      int    `mapstructure:"audio_port_max" validate:"required"`
	RTPPortRangeStart int    `mapstructure:"rtp_port_range_start"`
	RTPPortRangeEnd   int    `mapstructure:"rtp_port_range_end"`
	SFUServiceHost    string `mapstructure:"sfu_service_host" validate:"required"`
	MediasoupHost     string `mapstructure:"mediasoup_worker_host"`
	MediasoupPort     int    `mapstructure:"mediasoup_worker_port"`
	RTPComedia        bool   `mapstructure:"rtp_comedia"`
	RTPSendSourcePort int    `mapstructure:"rtp_send_source_port"`

	// Semantic layer
	SemanticServiceHost string `mapstructure:"semantic_service_host"`
	SemanticServicePort int    `mapstructure:"semantic_service_port"`
	QdrantURL           string `mapstructure:"url_qdrant"`
	QdrantAPIKey        string `mapstructure:"api_key_qdrant"`
	CollectionName      string `mapstructure:"collection_name" validate:"required"`
	MaxSearchResults    int    `mapstructure:"max_search_results" validate:"required"`

	// Model collaborators
	MLBridgeURL            string `mapstructure:"ml_bridge_url" validate:"required"`
	MLBridgeTimeoutSeconds int    `mapstructure:"ml_bridge_timeout"`
	OpenAIAPIKey           string `mapstructure:"openai_api_key"`
	OpenAIModel            string `mapstructure:"openai_model"`
	EmbeddingModel         string `mapstructure:"embedding_model"`

	// VAD
	SileroModelPath   string `mapstructure:"silero_model_path"`
	VADAggressiveness int    `mapstructure:"vad_aggressiveness"`

	// Voice cloning
	VoiceCloneDir        string `mapstructure:"voice_clone_dir"`
	VoiceCloneMinSeconds int    `mapstructure:"voice_clone_min_seconds"`

	// Emission tuning
	NoiseGateThreshold int `mapstructure:"noise_gate_threshold"`
	NoiseGateDilation  int `mapstructure:"noise_gate_dilation"`
}

// InitConfig builds the viper instance, layering .env (when present) under
// the process environment.
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	if path := os.Getenv("ENV_PATH"); path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env variables.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "relay-service")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("AUDIO_GRPC_PORT", 50051)
	v.SetDefault("SEMANTIC_GRPC_PORT", 50052)
	v.SetDefault("CHATBOT_GRPC_PORT", 50053)

	v.SetDefault("AUDIO_PORT_MIN", 35000)
	v.SetDefault("AUDIO_PORT_MAX", 35400)
	v.SetDefault("RTP_PORT_RANGE_START", 40000)
	v.SetDefault("RTP_PORT_RANGE_END", 40400)
	v.SetDefault("SFU_SERVICE_HOST", "127.0.0.1")
	v.SetDefault("MEDIASOUP_WORKER_HOST", "127.0.0.1")
	v.SetDefault("MEDIASOUP_WORKER_PORT", 35000)
	v.SetDefault("RTP_COMEDIA", false)
	v.SetDefault("RTP_SEND_SOURCE_PORT", 0)

	v.SetDefault("SEMANTIC_SERVICE_HOST", "127.0.0.1")
	v.SetDefault("SEMANTIC_SERVICE_PORT", 50052)
	v.SetDefault("URL_QDRANT", "")
	v.SetDefault("API_KEY_QDRANT", "")
	v.SetDefault("COLLECTION_NAME", "transcripts")
	v.SetDefault("MAX_SEARCH_RESULTS", 10)

	v.SetDefault("ML_BRIDGE_URL", "http://127.0.0.1:8002")
	v.SetDefault("ML_BRIDGE_TIMEOUT", 30)
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("EMBEDDING_MODEL", "text-embedding-3-small")

	v.SetDefault("SILERO_MODEL_PATH", "")
	v.SetDefault("VAD_AGGRESSIVENESS", 3)

	v.SetDefault("VOICE_CLONE_DIR", "voice_clones")
	v.SetDefault("VOICE_CLONE_MIN_SECONDS", 10)

	v.SetDefault("NOISE_GATE_THRESHOLD", 500)
	v.SetDefault("NOISE_GATE_DILATION", 480)
}

// GetApplicationConfig unmarshals and validates the relay configuration.
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(&config); err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
