package bus

import (
	"slices"

	"github.com/segmentio/kafka-go"
)

// NewBalancer returns the outbound partition strategy. A negative partition
// routes by key hash; otherwise records are pinned to that partition while it
// exists on the topic and fall back to key hashing when it does not.
func NewBalancer(partition int) kafka.Balancer {
	hash := &kafka.Hash{}
	if partition < 0 {
		return hash
	}
	return &pinned{partition: partition, fallback: hash}
}

type pinned struct {
	partition int
	fallback  kafka.Balancer
}

func (p *pinned) Balance(msg kafka.Message, partitions ...int) int {
	if slices.Contains(partitions, p.partition) {
		return p.partition
	}
	return p.fallback.Balance(msg, partitions...)
}
