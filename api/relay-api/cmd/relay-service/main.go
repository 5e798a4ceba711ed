// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	audio_api "github.com/crosstalkai/api/relay-api/api/audio"
	chatbot_api "github.com/crosstalkai/api/relay-api/api/chatbot"
	semantic_api "github.com/crosstalkai/api/relay-api/api/semantic"
	"github.com/crosstalkai/api/relay-api/config"
	internal_audio "github.com/crosstalkai/api/relay-api/internal/audio"
	internal_audio_opuscodec "github.com/crosstalkai/api/relay-api/internal/audio/opuscodec"
	internal_audio_vad "github.com/crosstalkai/api/relay-api/internal/audio/vad"
	internal_cabin "github.com/crosstalkai/api/relay-api/internal/cabin"
	internal_chatbot "github.com/crosstalkai/api/relay-api/internal/chatbot"
	internal_indexer "github.com/crosstalkai/api/relay-api/internal/indexer"
	internal_mlbridge "github.com/crosstalkai/api/relay-api/internal/mlbridge"
	internal_pipeline "github.com/crosstalkai/api/relay-api/internal/pipeline"
	internal_ports "github.com/crosstalkai/api/relay-api/internal/ports"
	internal_sockethub "github.com/crosstalkai/api/relay-api/internal/sockethub"
	internal_voiceclone "github.com/crosstalkai/api/relay-api/internal/voiceclone"
	"github.com/crosstalkai/pkg/commons"
	relay_api "github.com/crosstalkai/protos"
)

func main() {
	vConfig, err := config.InitConfig()
	if err != nil {
		log.Fatalf("config init: %v", err)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logger, err := commons.NewApplicationLogger()
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	logger.Infow("Starting relay service", "service", cfg.ServiceName)

	allocator := internal_ports.NewAllocator(logger, cfg.AudioPortMin, cfg.AudioPortMax)
	if cfg.RTPPortRangeStart > 0 && cfg.RTPPortRangeEnd >= cfg.RTPPortRangeStart {
		allocator.AddFallbackRange(cfg.RTPPortRangeStart, cfg.RTPPortRangeEnd)
	}

	comediaPort := 0
	if cfg.RTPComedia {
		comediaPort = cfg.RTPSendSourcePort
	}
	hub, err := internal_sockethub.NewHub(logger, allocator, cfg.AudioPortMin, comediaPort)
	if err != nil {
		// The receive socket is the process's reason to exist.
		logger.Errorw("Failed to bind shared receive socket", "port", cfg.AudioPortMin, "error", err)
		logger.Sync()
		os.Exit(1)
	}
	hub.Start()

	resampler, err := internal_audio.GetResampler(logger)
	if err != nil {
		logger.Errorw("Resampler init failed", "error", err)
		os.Exit(1)
	}

	bridge := internal_mlbridge.NewClient(logger, cfg.MLBridgeURL,
		internal_mlbridge.WithTimeout(time.Duration(cfg.MLBridgeTimeoutSeconds)*time.Second))

	clones, err := internal_voiceclone.NewStore(logger, bridge,
		filepath.Join(cfg.VoiceCloneDir, "embeddings"), cfg.VoiceCloneMinSeconds)
	if err != nil {
		logger.Errorw("Voice clone store init failed", "error", err)
		os.Exit(1)
	}

	codecs := internal_audio_opuscodec.NewCache(logger)
	pipelines := internal_pipeline.NewCache(logger, bridge, clones)
	manager := internal_cabin.NewManager(logger, hub, codecs, resampler, pipelines,
		detectorFactory(logger, cfg),
		internal_cabin.Settings{
			SFUHost:            cfg.SFUServiceHost,
			NoiseGateThreshold: cfg.NoiseGateThreshold,
			NoiseGateDilation:  cfg.NoiseGateDilation,
		})

	group, ctx := errgroup.WithContext(context.Background())

	audioServer := grpc.NewServer()
	relay_api.RegisterAudioServiceServer(audioServer,
		audio_api.NewAudioGRPCApi(cfg, logger, manager, bridge))
	group.Go(func() error {
		return serve(ctx, logger, audioServer, cfg.AudioGRPCPort, "audio")
	})

	var indexer *internal_indexer.Indexer
	if cfg.QdrantURL == "" {
		logger.Warnw("URL_QDRANT not set; semantic and chatbot services disabled")
	} else {
		store, err := internal_indexer.NewQdrantStore(context.Background(), logger,
			cfg.QdrantURL, cfg.QdrantAPIKey, cfg.CollectionName)
		if err != nil {
			logger.Errorw("Qdrant init failed", "url", cfg.QdrantURL, "error", err)
			os.Exit(1)
		}
		embedder := internal_indexer.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
		indexer = internal_indexer.New(logger, store, embedder, bridge, 4)

		semanticServer := grpc.NewServer()
		relay_api.RegisterSemanticServiceServer(semanticServer,
			semantic_api.NewSemanticGRPCApi(cfg, logger, indexer))
		group.Go(func() error {
			return serve(ctx, logger, semanticServer, cfg.SemanticGRPCPort, "semantic")
		})

		bot := internal_chatbot.NewBot(logger, indexer,
			internal_chatbot.NewOpenAIChat(cfg.OpenAIAPIKey, cfg.OpenAIModel))
		chatbotServer := grpc.NewServer()
		relay_api.RegisterChatbotServiceServer(chatbotServer,
			chatbot_api.NewChatbotGRPCApi(cfg, logger, bot))
		group.Go(func() error {
			return serve(ctx, logger, chatbotServer, cfg.ChatbotGRPCPort, "chatbot")
		})
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logger.Infow("Shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Errorw("A listener failed, shutting down", "error", ctx.Err())
	}

	manager.DestroyAll()
	hub.Close()
	clones.Close()
	if indexer != nil {
		indexer.Close()
	}
	if err := group.Wait(); err != nil {
		logger.Warnw("Listener exited with error", "error", err)
	}
	logger.Infow("Relay service stopped")
}

// serve runs one gRPC listener until ctx is cancelled.
func serve(ctx context.Context, logger commons.Logger, server *grpc.Server, port int, name string) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen %s on %d: %w", name, port, err)
	}
	logger.Infow("gRPC listener up", "service", name, "port", port)

	go func() {
		<-ctx.Done()
		server.GracefulStop()
	}()
	return server.Serve(lis)
}

// detectorFactory builds per-cabin VADs: silero when a model is configured,
// the energy classifier otherwise.
func detectorFactory(logger commons.Logger, cfg *config.AppConfig) internal_cabin.DetectorFactory {
	return func() *internal_audio_vad.Detector {
		var classifier internal_audio_vad.FrameClassifier = internal_audio_vad.EnergyClassifier{}
		if cfg.SileroModelPath != "" {
			silero, err := internal_audio_vad.NewSileroClassifier(logger, cfg.SileroModelPath, cfg.VADAggressiveness)
			if err != nil {
				logger.Warnw("Silero model load failed, using energy VAD",
					"model", cfg.SileroModelPath, "error", err)
			} else {
				classifier = silero
			}
		}
		return internal_audio_vad.NewDetector(logger, classifier, internal_audio_vad.Config{})
	}
}
