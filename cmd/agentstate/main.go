// Command agentstate chats with persisted agents and inspects their sessions.
package main

import "github.com/hupe1980/agentstate/internal/cli"

func main() {
	cli.Execute()
}
