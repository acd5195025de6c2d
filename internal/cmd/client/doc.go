// Package client provides the `zkq` command-line client.
//
// The CLI talks to the zkq HTTP admin API to perform queue operations
// from a terminal. It is primarily intended for developers and
// operators exercising or inspecting a running server.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. When using the standalone binary, it
// defaults to the ZKQ_HTTP environment variable, falling back to
// http://127.0.0.1:8080.
//
// Usage
//
//	zkq queue offer --name jobs --data 'hello'
//	zkq queue peek --name jobs
//	zkq queue poll --name jobs
//	zkq queue take --name jobs
//	zkq queue peek-elements --name jobs --max 10
//
//	zkq queue offer-wait --name rpc --data '{"op":"ping"}' --timeout-ms 5000
//	zkq queue remove-with-response --name rpc --request-path /queues/rpc/qn-0000000042 --data 'pong'
//	zkq queue await-pending --name rpc
//	zkq queue contains-id --name rpc --key requestId --id abc-123
//	zkq queue tail-id --name rpc
package client
