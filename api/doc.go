// Package api exposes the order intake HTTP surface: order submission,
// health, and the metrics endpoint. Handlers stay thin and delegate
// publishing decisions to the producer.
package api
