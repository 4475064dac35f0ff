// Command fake-rainmaker serves the RainMaker login, nodes and params endpoints
// locally so the ingestion loop can run end to end without the real cloud.
package main

import (
	"math/rand"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richd0tcom/yaku/internal/rainmaker/rainmakertest"
)

func main() {
	port := getEnv("PORT", "8081")
	nodeID := getEnv("RAINMAKER_NODE_ID", "USANptj2EUMgXBjNZnwqhE")
	group := getEnv("RAINMAKER_PARAM_GROUP", "Temperature Sensor")
	drift := getEnvDuration("DRIFT_INTERVAL", 10*time.Second)

	fake := rainmakertest.NewUnstartedServer(
		getEnv("RAINMAKER_USER", "user"),
		getEnv("RAINMAKER_PASSWORD", "pass"),
		getEnv("FAKE_TOKEN", "tok123"),
	)

	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		logrus.Fatalf("Failed to listen on %s: %v", port, err)
	}
	fake.Listener.Close()
	fake.Listener = listener

	temperature := getEnvFloat("START_TEMPERATURE", 22.3)
	setReading(fake, nodeID, group, temperature, 45)
	fake.Start()
	defer fake.Close()

	logrus.Infof("Fake RainMaker listening on %s for node %s", fake.URL, nodeID)

	ticker := time.NewTicker(drift)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigChan:
			logrus.WithFields(logrus.Fields{
				"logins":  fake.Logins.Load(),
				"fetches": fake.Fetches.Load(),
			}).Info("Fake RainMaker stopped")
			return
		case <-ticker.C:
			temperature += rand.Float64() - 0.5
			setReading(fake, nodeID, group, temperature, rand.Float64()*20+40)
		}
	}
}

func setReading(fake *rainmakertest.Server, nodeID, group string, temperature, humidity float64) {
	fake.SetNodeParams(nodeID, map[string]any{
		group: map[string]any{
			"Name":        "Temperature",
			"Temperature": temperature,
			"Humidity":    humidity,
		},
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
