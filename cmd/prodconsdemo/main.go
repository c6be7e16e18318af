package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/bounded-channel-coordinator/coordinator"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx := context.Background()

	cfg := coordinator.DefaultConfig()
	cfg.Logger = logger
	cfg.ProduceRate = coordinator.Per(20, time.Second)
	cfg.ConsumeRate = coordinator.Per(10, time.Second)

	logger.Info("squares scenario: 1 producer, 2 consumers, capacity 2")
	squares, err := coordinator.SquaresScenario(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("squares scenario failed")
	}
	sum := 0
	for item, n := range squares.Counts() {
		sum += item * n
	}
	logger.WithFields(logrus.Fields{
		"items": squares.Total(),
		"sum":   sum,
	}).Info("squares scenario complete")

	logger.Info("named items scenario: 2 producers, 3 consumers")
	named, err := coordinator.NamedItemsScenario(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("named items scenario failed")
	}
	logger.WithField("items", named.Total()).Info("named items scenario complete")
}
