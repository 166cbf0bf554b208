package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/bbernhard/radiology-playground/datastructures"
)

// Job holds the attributes needed to perform unit of work.
type Job struct {
	AnalysisRequest datastructures.AnalysisRequest
}

// Processor handles one job; the analyzer is the production implementation.
type Processor interface {
	Process(ctx context.Context, req datastructures.AnalysisRequest) error
}

// NewWorker creates takes a numeric id and a channel w/ worker pool.
func NewWorker(id int, workerPool chan chan Job, processor Processor) Worker {
	return Worker{
		id:         id,
		jobQueue:   make(chan Job),
		workerPool: workerPool,
		processor:  processor,
	}
}

type Worker struct {
	id         int
	jobQueue   chan Job
	workerPool chan chan Job
	processor  Processor
}

func (w Worker) start(ctx context.Context, done func()) {
	log.Debug("[Worker] Worker ", w.id, " starting")

	go func() {
		defer done()
		for {
			// Add my jobQueue to the worker pool.
			select {
			case w.workerPool <- w.jobQueue:
			case <-ctx.Done():
				log.Debug("[Worker] Worker ", w.id, " stopping")
				return
			}

			select {
			case job := <-w.jobQueue:
				// Dispatcher has added a job to my jobQueue.
				err := w.processor.Process(ctx, job.AnalysisRequest)
				if err != nil {
					log.Debug("[Worker] Couldn't analyze ", job.AnalysisRequest.Uuid, ": ", err.Error())
				}

			case <-ctx.Done():
				// We have been asked to stop.
				log.Debug("[Worker] Worker ", w.id, " stopping")
				return
			}
		}
	}()
}

// NewDispatcher creates, and returns a new Dispatcher object.
func NewDispatcher(jobQueue chan Job, maxWorkers int, processor Processor) *Dispatcher {
	workerPool := make(chan chan Job, maxWorkers)

	return &Dispatcher{
		jobQueue:   jobQueue,
		maxWorkers: maxWorkers,
		workerPool: workerPool,
		processor:  processor,
	}
}

type Dispatcher struct {
	workerPool chan chan Job
	maxWorkers int
	jobQueue   chan Job
	processor  Processor
}

// run starts the workers and dispatches jobs until ctx is done. It returns once
// every worker has stopped.
func (d *Dispatcher) run(ctx context.Context) error {
	stopped := make(chan struct{}, d.maxWorkers)
	for i := 0; i < d.maxWorkers; i++ {
		worker := NewWorker(i+1, d.workerPool, d.processor)
		worker.start(ctx, func() { stopped <- struct{}{} })
	}

	d.dispatch(ctx)

	for i := 0; i < d.maxWorkers; i++ {
		<-stopped
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context) {
	for {
		select {
		case job := <-d.jobQueue:
			select {
			case workerJobQueue := <-d.workerPool:
				select {
				case workerJobQueue <- job:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
