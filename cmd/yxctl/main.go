// Command yxctl is a thin sender/receiver harness over the yx package,
// matching spec §6.4's fixed test GUID/keys/port contract. It contains no
// protocol logic of its own — every byte on the wire is produced by
// yx.SimpleBuilder and yx.VerifyPacket.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ScottYelich/yx"
)

// Fixed test material from spec §6.4.
var (
	testGUID    = bytesOf(6, 0x01)
	testHMACKey = bytesOf(32, 0x00)
	testPort    = 49999
)

func bytesOf(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func port() int {
	if v := os.Getenv("TEST_YX_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			return p
		}
	}
	return testPort
}

func main() {
	root := &cobra.Command{
		Use:   "yxctl",
		Short: "thin send/recv harness over the yx protocol",
	}
	root.AddCommand(sendCmd(), recvCmd())

	if err := root.Execute(); err != nil {
		fmt.Printf("FAILED: %v\n", err)
		os.Exit(1)
	}
}

func sendCmd() *cobra.Command {
	var host string
	var message string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "emit one text-protocol packet and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, err := yx.NewTransport(yx.TransportOptions{
				ListenAddr: "0.0.0.0",
				ListenPort: 0,
				Broadcast:  false,
				ReusePort:  true,
			})
			if err != nil {
				return fmt.Errorf("bind send socket: %w", err)
			}
			defer transport.Close()

			body := jsonRPCPing(yx.String(message))

			var builder yx.SimpleBuilder
			wire, err := builder.BuildTextPacket(body, testGUID, testHMACKey)
			if err != nil {
				return fmt.Errorf("build packet: %w", err)
			}

			dst, err := resolveAddr(host, port())
			if err != nil {
				return fmt.Errorf("resolve %s: %w", host, err)
			}
			if err := transport.Send(wire, dst); err != nil {
				return fmt.Errorf("send: %w", err)
			}

			fmt.Println("SENT")
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "destination host")
	cmd.Flags().StringVar(&message, "message", "ping", "text payload value")
	return cmd
}

func recvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "await one authenticated packet within 5s and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, err := yx.NewTransport(yx.TransportOptions{
				ListenAddr: "0.0.0.0",
				ListenPort: port(),
				Broadcast:  false,
				ReusePort:  true,
			})
			if err != nil {
				return fmt.Errorf("bind recv socket: %w", err)
			}
			defer transport.Close()

			data, _, err := transport.Recv(5 * time.Second)
			if err != nil {
				return fmt.Errorf("no packet received: %w", err)
			}

			lookup := func(string) []byte { return testHMACKey }
			if _, err := yx.VerifyPacket(data, lookup); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}

			fmt.Println("RECEIVED")
			return nil
		},
	}
	return cmd
}

func jsonRPCPing(payload yx.Value) yx.Value {
	return yx.Object(map[string]yx.Value{
		"jsonrpc": yx.String("2.0"),
		"method":  yx.String("ping"),
		"params":  payload,
	})
}

func resolveAddr(host string, port int) (yx.Addr, error) {
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return yx.Addr{}, fmt.Errorf("could not resolve host %q", host)
		}
		ip = ips[0]
	}
	return yx.Addr{IP: ip, Port: port}, nil
}
