package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/ingest"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/logging"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/metrics"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/state"
)

// #region main
func main() {
	dbPath := envOr("ESTIMATOR_DB", "estimator.db")
	logPath := envOr("ESTIMATOR_LOGFILE", "")
	debug, _ := strconv.ParseBool(envOr("ESTIMATOR_DEBUG", "false"))

	cfg := ingest.DefaultConfig()
	if v := os.Getenv("ESTIMATOR_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}
	cfg.KafkaTopic = envOr("ESTIMATOR_KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.KafkaGroup = envOr("ESTIMATOR_KAFKA_GROUP", cfg.KafkaGroup)
	cfg.MQTTBroker = envOr("ESTIMATOR_MQTT_BROKER", "")
	cfg.MQTTTopic = envOr("ESTIMATOR_MQTT_TOPIC", cfg.MQTTTopic)
	cfg.MQTTClientID = envOr("ESTIMATOR_MQTT_CLIENT_ID", cfg.MQTTClientID)

	if len(cfg.KafkaBrokers) == 0 && cfg.MQTTBroker == "" {
		log.Fatalf("no source configured: set ESTIMATOR_KAFKA_BROKERS or ESTIMATOR_MQTT_BROKER")
	}

	logger, err := logging.NewLogger(logPath, debug)
	if err != nil {
		log.Fatalf("failed to open log file %s: %v", logPath, err)
	}
	defer logger.Close()

	store, err := state.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics()
	ing := ingest.NewIngester(store, logger.Logger).WithMetrics(m)
	if addr := envOr("ESTIMATOR_METRICS_ADDR", ""); addr != "" {
		go func() {
			logger.Info("metrics ready", "addr", addr)
			if err := http.ListenAndServe(addr, m.Handler()); err != nil {
				logger.Error("metrics serve", "error", err)
			}
		}()
	}

	if cfg.MQTTBroker != "" {
		client, err := ingest.NewMQTTClient(cfg)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer client.Disconnect(250)
		if err := ing.SubscribeMQTT(client, cfg); err != nil {
			log.Fatalf("%v", err)
		}
		logger.Info("mqtt subscribed", "broker", cfg.MQTTBroker, "topic", cfg.MQTTTopic)
	}

	if len(cfg.KafkaBrokers) > 0 {
		r := ingest.NewKafkaReader(cfg)
		defer r.Close()
		logger.Info("kafka consuming", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic, "group", cfg.KafkaGroup)
		if err := ing.ConsumeKafka(ctx, r); err != nil {
			logger.Error("kafka consumer stopped", "error", err)
			stop()
			return
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")
}

// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
