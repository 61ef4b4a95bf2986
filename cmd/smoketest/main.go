// Command smoketest checks connectivity to the service's backing
// infrastructure: Redis, the boundary API and Kafka.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/udmkit/fishnet/internal/invalidation"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func testRedis(ctx context.Context, addr string) error {
	fmt.Println("Redis test")
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
	})
	defer func() { _ = client.Close() }()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	if err := client.Set(ctx, "smoketest", "ok", 30*time.Second).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	val, err := client.Get(ctx, "smoketest").Result()
	if err != nil {
		return fmt.Errorf("redis get: %w", err)
	}
	fmt.Println("redis GET smoketest:", val)
	return nil
}

func testBoundaryAPI(baseURL, username, password string, year int) error {
	fmt.Println("Boundary API test")

	reqURL := fmt.Sprintf("%s/boundaries/lads?lad_codes=E06000001&export_format=geojson&year=%d",
		strings.TrimRight(baseURL, "/"), year)
	u, err := url.Parse(reqURL)
	if err != nil {
		return fmt.Errorf("bad boundary URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if username != "" {
		req.SetBasicAuth(username, password)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("http get boundary: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// only read a small part of the body (it can be large)
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("boundary status %d: %s", resp.StatusCode, string(body))
	}
	fmt.Println("boundary sample:")
	fmt.Println(string(body))
	return nil
}

func testKafka(brokers []string, topic string) error {
	fmt.Println("Kafka test")

	log := zerolog.Nop()
	pub, err := invalidation.NewPublisher(brokers, topic, &log)
	if err != nil {
		return fmt.Errorf("publisher create: %w", err)
	}
	defer func() { _ = pub.Close() }()

	ev := invalidation.Event{
		Version: 1,
		Op:      "update",
		Codes:   []string{"E06000001"},
		TS:      time.Now().UTC(),
		Source:  "smoketest",
	}
	if err := pub.Publish(ev); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	fmt.Println("produced one boundary-update event")

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	consumer, err := sarama.NewConsumer(brokers, cfg)
	if err != nil {
		return fmt.Errorf("consumer create: %w", err)
	}
	defer func() { _ = consumer.Close() }()

	pc, err := consumer.ConsumePartition(topic, 0, sarama.OffsetOldest)
	if err != nil {
		return fmt.Errorf("consume partition: %w", err)
	}
	defer func() { _ = pc.Close() }()

	select {
	case m := <-pc.Messages():
		fmt.Println("consumed:", string(m.Value))
	case <-time.After(5 * time.Second):
		fmt.Println("no message consumed (timeout)")
	}
	return nil
}

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	redisAddr := getenv("REDIS_ADDR", "localhost:6379")
	boundaryURL := getenv("BOUNDARY_API_URL", "http://localhost:8080/api/data")
	brokers := strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ",")
	topic := getenv("KAFKA_TOPIC", "boundary-updates")

	if err := testRedis(ctx, redisAddr); err != nil {
		fmt.Println("Redis error:", err)
		return
	}
	if err := testBoundaryAPI(boundaryURL,
		os.Getenv("BOUNDARY_API_USERNAME"), os.Getenv("BOUNDARY_API_PASSWORD"), 2016); err != nil {
		fmt.Println("Boundary API error:", err)
		return
	}
	if err := testKafka(brokers, topic); err != nil {
		fmt.Println("Kafka error:", err)
		return
	}
	fmt.Println("All tests completed")
}
