// Package rabbitmq publishes task completion events to a RabbitMQ exchange.
//
// Connection wraps amqp091-go with automatic reconnection; Publisher
// implements events.EventEmitter on top of it.
package rabbitmq
