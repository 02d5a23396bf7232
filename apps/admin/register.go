package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/philosothon/philosothon/core/registration"
)

func (cli *commandLine) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Fill in a registration interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.register(cmd.Context(), "cli:"+uuid.NewString())
		},
	}
}

// register drives a wizard session from the terminal until it ends or the input is exhausted.
func (cli *commandLine) register(ctx context.Context, id string) error {
	reply, err := cli.regSvc.Converse(ctx, id, "")
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(cli.in)
	for {
		cli.printReply(reply)
		if reply.Ended {
			return nil
		}

		line, ok, err := cli.readLine(ctx, id, scanner)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if reply, err = cli.regSvc.Converse(ctx, id, line); err != nil {
			return err
		}
	}
}

func (cli *commandLine) printReply(reply registration.Reply) {
	for _, msg := range reply.Messages {
		fmt.Fprintln(cli.out, msg)
	}
	if !reply.Ended {
		fmt.Fprint(cli.out, reply.Prompt+" ")
	}
}

// readLine reads the next input; password fields are read without echo.
func (cli *commandLine) readLine(ctx context.Context, id string, scanner *bufio.Scanner) (string, bool, error) {
	sess, _, err := cli.regSvc.Get(ctx, id)
	if err != nil {
		return "", false, err
	}
	if sess.Stage == registration.StageEarlyAuth && sess.Auth.Field >= registration.AuthPassword {
		pwd, err := cli.promptPassword("")
		return pwd, err == nil, err
	}

	if !scanner.Scan() {
		return "", false, scanner.Err()
	}
	return strings.TrimRight(scanner.Text(), "\r"), true, nil
}
