package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/medrex/clinical-ledger/chaincode/clinical"
	"github.com/medrex/clinical-ledger/pkg/config"
	"github.com/medrex/clinical-ledger/pkg/logger"
	"github.com/medrex/clinical-ledger/pkg/monitoring"
)

const serviceVersion = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)
	log.WithComponent("main").Info("Starting clinical-ledger chaincode")

	// Wire observability into the contract surface
	metrics := monitoring.NewMetricsCollector("clinical-ledger")
	health := monitoring.NewHealthManager("clinical-ledger", serviceVersion)
	clinical.SetLogger(log)
	clinical.SetMetrics(metrics)

	chaincode, err := contractapi.NewChaincode(clinical.Contracts()...)
	if err != nil {
		log.WithComponent("main").WithError(err).Error("Failed to create chaincode")
		os.Exit(1)
	}

	// Ops endpoint: health + metrics on a side port
	if cfg.Ops.Enabled {
		router := mux.NewRouter()
		router.Handle("/health", health.Handler()).Methods(http.MethodGet)
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
		go func() {
			log.WithComponent("ops").WithField("address", cfg.Ops.Address).Info("Ops endpoint listening")
			if err := http.ListenAndServe(cfg.Ops.Address, router); err != nil {
				log.WithComponent("ops").WithError(err).Error("Ops endpoint stopped")
			}
		}()
	}

	health.SetReady(true)

	// chaincode-as-a-service when the peer hands us an ID, classic
	// peer-managed mode otherwise
	if cfg.Chaincode.ID != "" {
		server := &shim.ChaincodeServer{
			CCID:    cfg.Chaincode.ID,
			Address: cfg.Chaincode.Address,
			CC:      chaincode,
			TLSProps: shim.TLSProperties{
				Disabled: !cfg.Chaincode.TLSEnabled,
			},
		}
		if cfg.Chaincode.TLSEnabled {
			server.TLSProps = loadTLS(cfg, log)
		}
		log.WithComponent("main").WithField("address", cfg.Chaincode.Address).Info("Chaincode server listening")
		if err := server.Start(); err != nil {
			log.WithComponent("main").WithError(err).Error("Chaincode server stopped")
			os.Exit(1)
		}
		return
	}

	if err := chaincode.Start(); err != nil {
		log.WithComponent("main").WithError(err).Error("Chaincode stopped")
		os.Exit(1)
	}
}

func loadTLS(cfg *config.Config, log *logger.Logger) shim.TLSProperties {
	key, err := os.ReadFile(cfg.Chaincode.KeyFile)
	if err != nil {
		log.WithComponent("main").WithError(err).Error("Failed to read TLS key")
		os.Exit(1)
	}
	cert, err := os.ReadFile(cfg.Chaincode.CertFile)
	if err != nil {
		log.WithComponent("main").WithError(err).Error("Failed to read TLS certificate")
		os.Exit(1)
	}
	props := shim.TLSProperties{
		Disabled: false,
		Key:      key,
		Cert:     cert,
	}
	if cfg.Chaincode.CAFile != "" {
		ca, err := os.ReadFile(cfg.Chaincode.CAFile)
		if err != nil {
			log.WithComponent("main").WithError(err).Error("Failed to read TLS client CA root")
			os.Exit(1)
		}
		props.ClientCACerts = ca
	}
	return props
}
