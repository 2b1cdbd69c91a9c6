package infrastructure_test

import (
	"testing"

	"github.com/JaimeStill/docgate/internal/config"
	"github.com/JaimeStill/docgate/internal/infrastructure"
	"github.com/JaimeStill/docgate/pkg/bus"
	"github.com/JaimeStill/docgate/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig() *config.Config {
	partition := -1
	return &config.Config{
		Storage: storage.Config{
			ContainerName:    "documents",
			ConnectionString: azuriteConnString,
			SASWindow:        "5m",
			MaxRetries:       3,
			TryTimeout:       "30s",
		},
		Bus: bus.Config{
			Brokers:        []string{"localhost:9092"},
			ClientID:       "docgate",
			Partition:      &partition,
			MaxAttempts:    3,
			DialTimeout:    "10s",
			SessionTimeout: "6s",
			StartOffset:    bus.StartOffsetEarliest,
		},
		Version: "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Storage == nil {
		t.Error("Storage is nil")
	}
	if infra.Bus == nil {
		t.Error("Bus is nil")
	}
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.ConnectionString = "not-a-connection-string"

	_, err := infrastructure.New(cfg)
	if err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}

func TestNewInvalidBusConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Bus.SASLMechanism = "GSSAPI"
	cfg.Bus.Username = "svc"

	_, err := infrastructure.New(cfg)
	if err == nil {
		t.Fatal("expected error for unsupported sasl mechanism")
	}
}
