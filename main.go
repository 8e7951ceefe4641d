package main

import (
	"fmt"
	"log"
	"net"
	"path/filepath"
	"strconv"

	"gochat/api"
	"gochat/config"
	"gochat/discovery"
	"gochat/server"
	"gochat/session"
	"gochat/storage"
	"gochat/ui"
)

func main() {
	cfg, cfgPath, err := config.LoadOrCreate()
	if err != nil {
		log.Fatalf("startup failed while loading config: %v", err)
	}
	dataDir := filepath.Dir(cfgPath)

	fmt.Printf("Install ID:      %s\n", cfg.InstallID)
	fmt.Printf("Host Name:       %s\n", cfg.DisplayHostName)
	fmt.Printf("Server Mode:     %s\n", cfg.ServerMode)
	fmt.Printf("Config File:     %s\n", cfgPath)
	fmt.Printf("Data Directory:  %s\n", dataDir)

	sessions, err := session.OpenStore(dataDir)
	if err != nil {
		log.Fatalf("startup failed while opening session store: %v", err)
	}

	baseURL := cfg.APIBaseURL
	var discoveryService *discovery.Service

	if cfg.ServerMode == config.ServerModeEmbedded {
		server.LoadEnv()

		store, dbPath, err := storage.Open(dataDir)
		if err != nil {
			log.Fatalf("startup failed while opening database: %v", err)
		}
		fmt.Printf("Database File:   %s\n", dbPath)
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("database close error: %v", err)
			}
		}()

		srv := server.New(server.Options{
			Store:     store,
			JWTSecret: server.EnvJWTSecret(),
		})
		defer func() {
			if err := srv.Shutdown(); err != nil {
				log.Printf("server shutdown error: %v", err)
			}
		}()

		port := server.EnvPort(cfg.ServerPort)
		host := "127.0.0.1"
		if cfg.AdvertiseServer {
			// Other installs on the LAN need to reach this server.
			host = "0.0.0.0"
		}
		go func() {
			if err := srv.Listen(net.JoinHostPort(host, strconv.Itoa(port))); err != nil {
				log.Printf("API server stopped: %v", err)
			}
		}()
		baseURL = fmt.Sprintf("http://localhost:%d/api", port)
		fmt.Printf("API Server:      %s\n", baseURL)

		if cfg.AdvertiseServer {
			discoveryService, err = discovery.Start(discovery.Config{
				SelfInstallID: cfg.InstallID,
				InstanceName:  cfg.DisplayHostName,
				APIPort:       port,
			})
			if err != nil {
				log.Printf("discovery startup failed: %v", err)
				discoveryService = nil
			} else {
				fmt.Println("Discovery:       announcing")
			}
		}
	} else {
		fmt.Printf("Remote Server:   %s\n", baseURL)

		// Remote mode still browses for LAN servers so the user can see
		// what else is available, without announcing anything.
		scanner, err := discovery.NewServerScanner(discovery.Config{
			SelfInstallID: cfg.InstallID,
		})
		if err != nil {
			log.Printf("discovery startup failed: %v", err)
		} else if err := scanner.Start(); err != nil {
			log.Printf("discovery startup failed: %v", err)
		} else {
			discoveryService = &discovery.Service{Scanner: scanner}
		}
	}

	client := api.NewClient(baseURL, func() string {
		return sessions.Current().Token
	})

	if err := ui.Run(ui.RunOptions{
		Config:     cfg,
		ConfigPath: cfgPath,
		DataDir:    dataDir,
		Client:     client,
		Sessions:   sessions,
		Discovery:  discoveryService,
	}); err != nil {
		log.Fatalf("ui error: %v", err)
	}
}
