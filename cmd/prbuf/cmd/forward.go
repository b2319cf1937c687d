/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/prbuf/pkg/forward"
	"github.com/ssargent/prbuf/pkg/inspect"
)

// forwardCmd represents the forward command
var forwardCmd = &cobra.Command{
	Use:   "forward",
	Short: "Send recovered entries to Kafka",
	Long: `Send every intact entry of the region to a Kafka topic. Messages are keyed
by entry id and carry the encoded entry as their value.

Examples:
  prbuf forward --brokers kafka-1:9092,kafka-2:9092
  prbuf forward --region ./crash.region --topic crash-reports`,
	RunE: func(cmd *cobra.Command, args []string) error {
		brokers, _ := cmd.Flags().GetStringSlice("brokers")
		topic, _ := cmd.Flags().GetString("topic")

		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		if len(brokers) == 0 {
			brokers = e.cfg.Kafka.Brokers
		}
		if topic == "" {
			topic = e.cfg.Kafka.Topic
		}
		if len(brokers) == 0 || topic == "" {
			return errors.New("forward needs kafka brokers and a topic")
		}

		mem, err := readRegion(e)
		if err != nil {
			return err
		}

		producer := forward.NewProducer(brokers, topic)
		defer producer.Close()

		res, err := forwardRegion(cmd.Context(), mem, producer, e.log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Forwarded %d entries to %s (%d damaged skipped)\n", res.Delivered, topic, res.Invalid)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forwardCmd)
	forwardCmd.Flags().StringSlice("brokers", nil, "Kafka brokers, override kafka.brokers")
	forwardCmd.Flags().String("topic", "", "Kafka topic, overrides kafka.topic")
}

func forwardRegion(ctx context.Context, mem []byte, sender forward.Sender, log *zap.Logger) (inspect.DrainResult, error) {
	res, err := inspect.Drain(ctx, mem, forward.NewForwarder(sender, log))
	if err != nil {
		log.Error("forwarding stopped", zap.Int("delivered", res.Delivered), zap.Error(err))
		return res, err
	}
	log.Info("forwarded region", zap.Int("delivered", res.Delivered), zap.Int("invalid", res.Invalid))
	return res, nil
}
