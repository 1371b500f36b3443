// Package jobs holds example Job Factory constructors demonstrating how
// a process wires its own job classes into internal/factory.Registry.
// Operators are expected to replace these with their own job classes.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgeq/forgeq/internal/factory"
	"github.com/forgeq/forgeq/internal/logger"
)

// Register binds the example classes below to reg under the class tags
// "count_items", "send_email", and "process_data".
func Register(reg *factory.Registry) {
	reg.Register("count_items", NewCountItems)
	reg.Register("send_email", NewSendEmail)
	reg.Register("process_data", NewProcessData)
}

type countItemsJob struct {
	Items []string `json:"items"`
}

// NewCountItems builds an Executable that logs the length of a JSON
// array argument.
func NewCountItems(arguments json.RawMessage) (factory.Executable, error) {
	var j countItemsJob
	if err := factory.DecodeArguments(arguments, &j); err != nil {
		return nil, fmt.Errorf("jobs: decode count_items arguments: %w", err)
	}
	return &j, nil
}

func (j *countItemsJob) Perform() error {
	logger.Default().Info("counted items", "count", len(j.Items))
	return nil
}

type sendEmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmail builds an Executable simulating an outbound email send.
func NewSendEmail(arguments json.RawMessage) (factory.Executable, error) {
	var j sendEmailJob
	if err := factory.DecodeArguments(arguments, &j); err != nil {
		return nil, fmt.Errorf("jobs: decode send_email arguments: %w", err)
	}
	return &j, nil
}

func (j *sendEmailJob) Perform() error {
	logger.Default().Info("sending email", "to", j.To, "subject", j.Subject)
	time.Sleep(2 * time.Second)
	return nil
}

type processDataJob struct {
	Dataset string `json:"dataset"`
}

// NewProcessData builds an Executable simulating a data-processing task.
func NewProcessData(arguments json.RawMessage) (factory.Executable, error) {
	var j processDataJob
	if err := factory.DecodeArguments(arguments, &j); err != nil {
		return nil, fmt.Errorf("jobs: decode process_data arguments: %w", err)
	}
	return &j, nil
}

func (j *processDataJob) Perform() error {
	logger.Default().Info("processing data", "dataset", j.Dataset)
	time.Sleep(3 * time.Second)
	return nil
}
