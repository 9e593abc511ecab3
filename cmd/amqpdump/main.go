// Command amqpdump decodes AMQP 1.0 encoded values from a file (or stdin)
// and prints the resulting message or bare value tree to stdout.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/amqptree/amqp"
)

func main() {
	message := flag.Bool("message", false, "decode input as a single AMQP message rather than a bare value stream")
	flag.Parse()

	var in io.Reader = os.Stdin
	if path := flag.Arg(0); path != "" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	buf, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(buf, *message); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(buf []byte, asMessage bool) error {
	if asMessage {
		msg := amqp.NewMessage()
		if _, err := msg.DecodeBytes(buf); err != nil {
			return err
		}
		dumpMessage(msg)
		return nil
	}

	tree := amqp.NewTree()
	for len(buf) > 0 {
		n, err := tree.Decode(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}

	c := tree.Cursor()
	for c.Next() {
		v, err := amqp.GetAny(c)
		if err != nil {
			return err
		}
		fmt.Printf("%#v\n", v)
	}
	return nil
}

func dumpMessage(m *amqp.Message) {
	fmt.Printf("header: durable=%v priority=%d ttl-set=%v delivery-count=%d\n",
		m.Header.Durable, m.Header.Priority, m.Header.TTLSet, m.Header.DeliveryCount)
	fmt.Printf("properties: message-id=%v address=%q subject=%q reply-to=%q\n",
		m.Properties.MessageID.Value(), m.Properties.Address, m.Properties.Subject, m.Properties.ReplyTo)

	if p, err := m.ApplicationProperties(); err == nil && len(p) > 0 {
		fmt.Println("application-properties:")
		for _, kv := range p {
			fmt.Printf("  %v = %v\n", kv.Key, kv.Value)
		}
	}
	if a, err := m.MessageAnnotations(); err == nil && len(a) > 0 {
		fmt.Println("message-annotations:")
		for _, kv := range a {
			fmt.Printf("  %v = %v\n", kv.Key, kv.Value)
		}
	}

	fmt.Printf("body (inferred=%v): %#v\n", m.Inferred, m.Body)

	if len(m.Footer) > 0 {
		fmt.Println("footer:")
		for _, kv := range m.Footer {
			fmt.Printf("  %v = %v\n", kv.Key, kv.Value)
		}
	}
}
