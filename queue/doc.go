// Package queue provides a blocking FIFO with a fixed capacity ceiling and an
// explicit end-of-stream marker.
//
// Push blocks while the queue is full and Pop blocks while it is empty, which
// gives producers backpressure against slow consumers. The end-of-stream
// marker is a separate variant pushed with PushEnd; Pop reports it with
// ok == false, so no value of T is ever mistaken for it.
//
// The capacity ceiling can only be raised. SetCapacity(Unbounded) opens the
// valve during shutdown so no producer stays blocked on a queue nobody drains.
package queue
