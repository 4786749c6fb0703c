// admingate-server serves the admin authentication API over HTTP. Identity
// records live in a SQLite database; session, lockout, and CSRF state sit in
// process memory unless a Redis address is configured, in which case all
// three move to Redis so multiple replicas share state.
//
// Configuration is environment-only. In addition to the ADMINGATE_* engine
// knobs, the server reads:
//
//	ADMINGATE_LISTEN_ADDR  listen address, default ":8443"
//	ADMINGATE_DB_PATH      SQLite path, default "admingate.db"
//	ADMINGATE_REDIS_ADDR   optional Redis address
//	ADMINGATE_AUDIT_FILE   optional JSONL audit sink path
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/harborcms/admingate"
	"github.com/harborcms/admingate/adminstore"
	"github.com/harborcms/admingate/httpapi"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("admingate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("listen_addr", ":8443")
	v.SetDefault("db_path", "admingate.db")

	cfg, err := admingate.LoadEnv(admingate.DefaultConfig())
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := adminstore.Open(v.GetString("db_path"))
	if err != nil {
		log.Fatalf("open admin store: %v", err)
	}

	builder := admingate.New().WithConfig(cfg).WithAdminProvider(store)

	if addr := v.GetString("redis_addr"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping: %v", err)
		}
		cancel()
		builder = builder.WithRedis(client)
	}

	var auditFile *os.File
	if path := v.GetString("audit_file"); path != "" {
		auditFile, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			log.Fatalf("open audit file: %v", err)
		}
		builder = builder.WithAuditSink(admingate.NewJSONWriterSink(auditFile))
	}

	engine, err := builder.Build()
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}

	server := &http.Server{
		Addr:              v.GetString("listen_addr"),
		Handler:           httpapi.NewServer(engine, httpapi.Options{}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("admingate-server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	engine.Close()
	if auditFile != nil {
		auditFile.Close()
	}
}
