// Command target-kafka produces a Singer message stream to Kafka, one
// topic per stream.
//
// Config keys:
//
//	brokers      list of bootstrap broker addresses (required)
//	topic_prefix prepended to stream names when forming topics
package main

import (
	"fmt"

	kafka "github.com/segmentio/kafka-go"

	"github.com/tapkit/tapkit/singer"
	"github.com/tapkit/tapkit/target"
)

func main() {
	target.Execute("target-kafka", nil, configure)
}

func configure(t *target.Target) error {
	raw, ok := t.Config["brokers"].([]any)
	if !ok || len(raw) == 0 {
		return fmt.Errorf("config key \"brokers\" is required")
	}
	brokers := make([]string, 0, len(raw))
	for _, b := range raw {
		s, ok := b.(string)
		if !ok {
			return fmt.Errorf("config key \"brokers\" must be a list of addresses")
		}
		brokers = append(brokers, s)
	}
	prefix := t.ConfigString("topic_prefix")

	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
	}

	t.NewSink = func(stream string, _ *singer.Schema, keyProperties []string) (target.Sink, error) {
		return newKafkaSink(writer, prefix+stream, keyProperties), nil
	}
	return nil
}
