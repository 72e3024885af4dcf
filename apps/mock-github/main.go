package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/tilsley/quill/pkg/logging"
	"github.com/tilsley/quill/pkg/mockgithub"
)

type envConfig struct {
	Port  int    `env:"PORT, default=9090"`
	Owner string `env:"MOCK_OWNER, default=acme"`
	// Empty disables authentication.
	Token string `env:"GITHUB_TOKEN"`
}

func main() {
	log := logging.New()

	var env envConfig
	if err := envconfig.Process(context.Background(), &env); err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}

	var opts []mockgithub.Option
	if env.Token != "" {
		opts = append(opts, mockgithub.WithToken(env.Token))
	}
	s := mockgithub.New(log, opts...)
	seedRepos(s, env.Owner)
	log.Info("seeded repos", "owner", env.Owner, "branches", s.Branches(env.Owner, "site"))

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(env.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("mock-github starting", "port", env.Port, "auth", env.Token != "")
	if err := srv.ListenAndServe(); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}
