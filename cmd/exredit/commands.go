package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/scott-cotton/cli"
)

func MainCommand(ctx context.Context) *cli.Command {
	cfg := &MainConfig{ctx: ctx}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "exredit").
		WithSynopsis("exredit [opts] command [opts] args").
		WithDescription("exredit inspects and edits OpenEXR files.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return exreditMain(cfg, cc, args)
		}).
		WithSubs(
			InfoCommand(cfg),
			AttrsCommand(cfg),
			SetAttrCommand(cfg),
			CompressCommand(cfg),
			PreviewCommand(cfg),
			DiffCommand(cfg),
			CheckCommand(cfg))
}

func exreditMain(cfg *MainConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, args[0])
	}
	if err := cfg.setup(); err != nil {
		return err
	}
	err = sub.Run(cc, args[1:])
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}

func InfoCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &InfoConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "info").
		WithAliases("i").
		WithSynopsis("info file [file...]").
		WithDescription("summarize the parts of OpenEXR files").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func AttrsCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &AttrsConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "attrs").
		WithAliases("a").
		WithSynopsis("attrs [-part n] file").
		WithDescription("list the header attributes of a part").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func SetAttrCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SetAttrConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "set-attr").
		WithSynopsis("set-attr [-part n] [-type t] [-o out] file name value").
		WithDescription("set one attribute, given as text, and save the file").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func CompressCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &CompressConfig{MainConfig: mainCfg, Part: -1, Compression: "zip"}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "compress").
		WithSynopsis("compress [-c scheme] [-part n] [-o out] file").
		WithDescription("recompress parts and save the file").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func PreviewCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &PreviewConfig{MainConfig: mainCfg, Gamma: -1, Contrast: -1}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts,
		floatOpt("exposure", "exposure in stops (default from config)", &cfg.Exposure),
		floatOpt("gamma", "display gamma (default from config)", &cfg.Gamma),
		floatOpt("brightness", "brightness offset, -1 to 1", &cfg.Brightness),
		floatOpt("contrast", "contrast, 0 to 3 (default from config)", &cfg.Contrast))
	return cli.NewCommandAt(&cfg.Command, "preview").
		WithAliases("p").
		WithSynopsis("preview [-part n] [-layer name] [-size px] -o out.png file").
		WithDescription("render a part through the display curve to PNG").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func DiffCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DiffConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts, floatOpt("tolerance", "largest pixel difference treated as equal", &cfg.Tolerance))
	return cli.NewCommandAt(&cfg.Command, "diff").
		WithAliases("d").
		WithSynopsis("diff [-headers] [-tolerance x] a b").
		WithDescription("compare the headers and pixels of two files; exits 1 when they differ").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func CheckCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &CheckConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "check").
		WithAliases("c").
		WithSynopsis("check [-q] [-aces] file [file...]").
		WithDescription("validate files; exits 1 when any file has errors").
		WithOpts(opts...).
		WithRun(cfg.run)
}
