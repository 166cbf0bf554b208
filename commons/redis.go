package commons

import (
	"encoding/json"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"

	"github.com/bbernhard/radiology-playground/datastructures"
)

const (
	// AnalysisQueue is the redis list the api pushes analysis requests onto.
	AnalysisQueue = "analyzeme"

	// results and cancel markers live for 1hr, nobody polls for longer than that
	ResultTTL = 3600
)

func ResultKey(requestId string) string { return "analysis" + requestId }
func CancelKey(requestId string) string { return "cancelled" + requestId }

func NewRedisPool(address string, maxConnections int) *redis.Pool {
	return redis.NewPool(func() (redis.Conn, error) {
		c, err := redis.Dial("tcp", address)

		if err != nil {
			return nil, err
		}

		return c, err
	}, maxConnections)
}

// Enqueue adds an analysis request to the 'analyzeme' queue.
func Enqueue(conn redis.Conn, req datastructures.AnalysisRequest) error {
	serialized, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "couldn't marshal analysis request")
	}
	_, err = conn.Do("RPUSH", AnalysisQueue, serialized)
	return errors.Wrap(err, "couldn't queue analysis request")
}

// Dequeue pops the oldest analysis request. ok is false when the queue is empty.
func Dequeue(conn redis.Conn) (req datastructures.AnalysisRequest, ok bool, err error) {
	data, err := redis.Bytes(conn.Do("LPOP", AnalysisQueue))
	if err == redis.ErrNil {
		return req, false, nil
	}
	if err != nil {
		return req, false, errors.Wrap(err, "couldn't pop analysis request")
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, false, errors.Wrap(err, "couldn't unmarshal analysis request")
	}
	return req, true, nil
}

// StoreResult puts res into the mailbox of its request.
func StoreResult(conn redis.Conn, res datastructures.AnalysisResult) error {
	serialized, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(err, "couldn't marshal analysis result")
	}
	_, err = conn.Do("SETEX", ResultKey(res.Uuid), ResultTTL, serialized)
	return errors.Wrap(err, "couldn't store analysis result")
}

// TakeResult reads and removes the mailbox of requestId. ok is false while the
// worker hasn't answered yet.
func TakeResult(conn redis.Conn, requestId string) (res datastructures.AnalysisResult, ok bool, err error) {
	data, err := redis.Bytes(conn.Do("GET", ResultKey(requestId)))
	if err == redis.ErrNil {
		return res, false, nil
	}
	if err != nil {
		return res, false, errors.Wrap(err, "couldn't get analysis result")
	}
	if _, err := conn.Do("DEL", ResultKey(requestId)); err != nil {
		return res, false, errors.Wrap(err, "couldn't remove analysis result")
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return res, false, errors.Wrap(err, "couldn't unmarshal analysis result")
	}
	return res, true, nil
}

// Cancel marks requestId as abandoned and drops a result that already arrived.
func Cancel(conn redis.Conn, requestId string) error {
	if _, err := conn.Do("SETEX", CancelKey(requestId), ResultTTL, 1); err != nil {
		return errors.Wrap(err, "couldn't cancel analysis request")
	}
	_, err := conn.Do("DEL", ResultKey(requestId))
	return errors.Wrap(err, "couldn't remove analysis result")
}

func IsCancelled(conn redis.Conn, requestId string) (bool, error) {
	ok, err := redis.Bool(conn.Do("EXISTS", CancelKey(requestId)))
	return ok, errors.Wrap(err, "couldn't check cancel marker")
}
