// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

// Command vectorcli is a thin HTTP client over vectord's chan_ JSON-RPC
// surface (§4.4), grounded on dcrlncli's urfave/cli command structure.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "vectorcli"
	app.Usage = "control plane for vectord"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rpcserver",
			Value: "localhost:8980",
			Usage: "host:port of vectord's RPC surface",
		},
	}
	app.Commands = []cli.Command{
		setupCommand,
		depositCommand,
		createTransferCommand,
		resolveTransferCommand,
		withdrawCommand,
		getChannelCommand,
		getTransferCommand,
		restoreStateCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// call issues one chan_ JSON-RPC request and prints the envelope's
// result (or returns an error describing its fail envelope).
func call(ctx *cli.Context, method string, params interface{}) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return err
	}
	body, err := json.Marshal(struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}{Method: method, Params: paramsJSON})
	if err != nil {
		return err
	}

	url := "http://" + ctx.GlobalString("rpcserver") + "/"
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("unable to reach vectord: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env struct {
		Status string          `json:"status"`
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string                 `json:"message"`
			Context map[string]interface{} `json:"context"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("malformed response: %v", err)
	}
	if env.Status != "ok" {
		return fmt.Errorf("%s: %v", env.Error.Message, env.Error.Context)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, env.Result, "", "  "); err != nil {
		fmt.Println(string(env.Result))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}
