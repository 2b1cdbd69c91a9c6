package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/docgate/internal/documents"
)

const (
	EnvGatewayInboundTopic    = "DOCGATE_GATEWAY_INBOUND_TOPIC"
	EnvGatewaySuccessTopic    = "DOCGATE_GATEWAY_SUCCESS_TOPIC"
	EnvGatewayErrorTopic      = "DOCGATE_GATEWAY_ERROR_TOPIC"
	EnvGatewayGroupID         = "DOCGATE_GATEWAY_GROUP_ID"
	EnvGatewayOnMissingObject = "DOCGATE_GATEWAY_ON_MISSING_OBJECT"
	EnvGatewaySASPolicy       = "DOCGATE_GATEWAY_SAS_POLICY"
	EnvGatewayConsumers       = "DOCGATE_GATEWAY_CONSUMERS"
)

// GatewayConfig names the gateway's channels and issuance behavior.
type GatewayConfig struct {
	InboundTopic    string `toml:"inbound_topic"`
	SuccessTopic    string `toml:"success_topic"`
	ErrorTopic      string `toml:"error_topic"`
	GroupID         string `toml:"group_id"`
	OnMissingObject string `toml:"on_missing_object"`
	SASPolicy       string `toml:"sas_policy"`
	Consumers       int    `toml:"consumers"`
}

// Documents converts the finalized section into the gateway's runtime config.
func (c *GatewayConfig) Documents() documents.Config {
	policy, _ := documents.ParseMissingPolicy(c.OnMissingObject)
	return documents.Config{
		InboundTopic: c.InboundTopic,
		SuccessTopic: c.SuccessTopic,
		ErrorTopic:   c.ErrorTopic,
		GroupID:      c.GroupID,
		Consumers:    c.Consumers,
		Handler: documents.HandlerOptions{
			OnMissing: policy,
			SASPolicy: c.SASPolicy,
		},
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *GatewayConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *GatewayConfig) Merge(overlay *GatewayConfig) {
	if overlay.InboundTopic != "" {
		c.InboundTopic = overlay.InboundTopic
	}
	if overlay.SuccessTopic != "" {
		c.SuccessTopic = overlay.SuccessTopic
	}
	if overlay.ErrorTopic != "" {
		c.ErrorTopic = overlay.ErrorTopic
	}
	if overlay.GroupID != "" {
		c.GroupID = overlay.GroupID
	}
	if overlay.OnMissingObject != "" {
		c.OnMissingObject = overlay.OnMissingObject
	}
	if overlay.SASPolicy != "" {
		c.SASPolicy = overlay.SASPolicy
	}
	if overlay.Consumers != 0 {
		c.Consumers = overlay.Consumers
	}
}

func (c *GatewayConfig) loadDefaults() {
	if c.InboundTopic == "" {
		c.InboundTopic = "DocumentRequestInbound"
	}
	if c.SuccessTopic == "" {
		c.SuccessTopic = "DocumentRequestOutbound"
	}
	if c.ErrorTopic == "" {
		c.ErrorTopic = "DocumentRequestError"
	}
	if c.GroupID == "" {
		c.GroupID = "docgate"
	}
	if c.OnMissingObject == "" {
		c.OnMissingObject = string(documents.IssueAnyway)
	}
	if c.Consumers == 0 {
		c.Consumers = 1
	}
}

func (c *GatewayConfig) loadEnv() {
	if v := os.Getenv(EnvGatewayInboundTopic); v != "" {
		c.InboundTopic = v
	}
	if v := os.Getenv(EnvGatewaySuccessTopic); v != "" {
		c.SuccessTopic = v
	}
	if v := os.Getenv(EnvGatewayErrorTopic); v != "" {
		c.ErrorTopic = v
	}
	if v := os.Getenv(EnvGatewayGroupID); v != "" {
		c.GroupID = v
	}
	if v := os.Getenv(EnvGatewayOnMissingObject); v != "" {
		c.OnMissingObject = v
	}
	if v := os.Getenv(EnvGatewaySASPolicy); v != "" {
		c.SASPolicy = v
	}
	if v := os.Getenv(EnvGatewayConsumers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Consumers = n
		}
	}
}

func (c *GatewayConfig) validate() error {
	if c.InboundTopic == "" || c.SuccessTopic == "" || c.ErrorTopic == "" {
		return fmt.Errorf("topics required")
	}
	if c.InboundTopic == c.SuccessTopic || c.InboundTopic == c.ErrorTopic {
		return fmt.Errorf("inbound_topic must differ from the response topics")
	}
	if c.GroupID == "" {
		return fmt.Errorf("group_id required")
	}
	if _, err := documents.ParseMissingPolicy(c.OnMissingObject); err != nil {
		return err
	}
	if c.Consumers < 1 {
		return fmt.Errorf("consumers must be at least 1: %d", c.Consumers)
	}
	return nil
}
