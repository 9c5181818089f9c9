package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	var (
		redisAddr string
		timeout   time.Duration
	)

	queue := func() (*Queue, error) {
		return NewQueue(redisAddr, timeout)
	}

	app := &cli.App{
		Name:  "poison-queue-cli",
		Usage: "Manage the reservations service's Poison Queue",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "redis-addr",
				EnvVars:     []string{"REDIS_ADDR"},
				Value:       "localhost:6379",
				Destination: &redisAddr,
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Value:       10 * time.Second,
				Destination: &timeout,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "preview",
				Usage: "preview messages",
				Action: func(c *cli.Context) error {
					q, err := queue()
					if err != nil {
						return err
					}

					messages, err := q.Preview(c.Context)
					if err != nil {
						return err
					}

					for _, m := range messages {
						fmt.Printf("%v\t%v\t%v\t%v\n", m.ID, m.Topic, m.Handler, m.Reason)
					}

					return nil
				},
			},
			{
				Name:      "remove",
				ArgsUsage: "<message_id>",
				Usage:     "remove message",
				Action: func(c *cli.Context) error {
					q, err := queue()
					if err != nil {
						return err
					}

					return q.Remove(c.Context, c.Args().First())
				},
			},
			{
				Name:      "requeue",
				ArgsUsage: "<message_id>",
				Usage:     "send message back to the topic it failed on",
				Action: func(c *cli.Context) error {
					q, err := queue()
					if err != nil {
						return err
					}

					return q.Requeue(c.Context, c.Args().First())
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
