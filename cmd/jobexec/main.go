// Command jobexec is a thin client for jobexecd: it connects, sends one
// command line built from argv, and prints every frame the server sends
// back until the connection closes.
package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/smukkama/jobexec-server/internal/command"
	"github.com/smukkama/jobexec-server/internal/wire"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Fprintf(os.Stderr, "usage: %s <host> <port> <verb> [args...]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  verbs: issueJob <cmd...> | setConcurrency <n> | poll | stop <jobID> | exit\n")
		os.Exit(1)
	}

	host, port, verbArgs := os.Args[1], os.Args[2], os.Args[3:]
	addr := net.JoinHostPort(host, port)

	payload := buildPayload(verbArgs)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Fatalf("jobexec: connect %s: %v", addr, err)
	}
	defer conn.Close()

	codec := wire.NewCodec(conn)
	if err := codec.Send([]byte(payload)); err != nil {
		log.Fatalf("jobexec: send: %v", err)
	}

	if strings.HasPrefix(payload, "poll") {
		printPollReplies(codec)
		return
	}
	printReplies(codec)
}

func buildPayload(verbArgs []string) string {
	verb := verbArgs[0]
	tail := strings.Join(verbArgs[1:], " ")
	switch verb {
	case "issueJob":
		return command.Render(command.Issue, tail)
	case "setConcurrency":
		return command.Render(command.SetConcurrency, tail)
	case "poll":
		return command.Render(command.Poll, "")
	case "stop":
		return command.Render(command.Stop, tail)
	case "exit":
		return command.Render(command.Exit, "")
	default:
		// Pass through unrecognized verbs verbatim; the server will
		// close the connection with no reply (INVALID).
		return strings.Join(verbArgs, " ")
	}
}

// printPollReplies reads the count-frame POLL sends first, then that many
// payload frames.
func printPollReplies(codec *wire.Codec) {
	n, err := codec.RecvCount()
	if err != nil {
		log.Fatalf("jobexec: read count: %v", err)
	}
	fmt.Println(strconv.FormatInt(n, 10) + " pending job(s):")
	for i := int64(0); i < n; i++ {
		payload, err := codec.Recv()
		if err != nil {
			log.Fatalf("jobexec: read reply: %v", err)
		}
		fmt.Println(string(payload))
	}
}

// printReplies prints every frame the server sends until the connection
// closes. ISSUE_JOB gets two (submitted, then output); everything else gets
// exactly one.
func printReplies(codec *wire.Codec) {
	for {
		payload, err := codec.Recv()
		if err != nil {
			return
		}
		fmt.Println(string(payload))
	}
}
