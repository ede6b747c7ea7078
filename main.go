package main

import (
	"flag"
	"os"
	"path/filepath"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/corridor-tools/corridorgen/pipeline"
	"github.com/corridor-tools/corridorgen/spec"
)

var (
	// corridor description file
	specPath = flag.String("spec", "", "corridor spec file path")
	// output directory
	outDir = flag.String("out", "out/", "output directory for the generated plainXML files")
	// output file name prefix
	prefix = flag.String("prefix", "net", "output file name prefix")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "log level (one of: trace debug info warn error critical off)")

	log = logrus.WithField("module", "corridorgen")
)

// manifest summarises one build for downstream tooling.
type manifest struct {
	SpecVersion string   `yaml:"spec_version"`
	GridMax     int      `yaml:"grid_max"`
	Breakpoints int      `yaml:"breakpoints"`
	Connections int      `yaml:"connections"`
	Crossings   int      `yaml:"crossings"`
	Programs    int      `yaml:"programs"`
	Files       []string `yaml:"files"`
}

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	if *specPath == "" {
		log.Panic("spec file must be specified")
	}

	cs, err := spec.Load(*specPath)
	if err != nil {
		log.Panicf("spec load err: %v", err)
	}

	res, err := pipeline.Build(cs)
	if err != nil {
		log.Panicf("build err: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Panicf("output dir err: %v", err)
	}
	files := []struct {
		name    string
		content string
	}{
		{*prefix + ".nod.xml", res.NodesXML},
		{*prefix + ".edg.xml", res.EdgesXML},
		{*prefix + ".con.xml", res.ConnectionsXML},
		{*prefix + ".tll.xml", res.TLLXML},
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(*outDir, f.name), []byte(f.content), 0o644); err != nil {
			log.Panicf("write %s err: %v", f.name, err)
		}
		names = append(names, f.name)
	}

	gridMax := 0
	if n := len(res.Breakpoints); n > 0 {
		gridMax = res.Breakpoints[n-1].Pos
	}
	m := manifest{
		SpecVersion: cs.Version,
		GridMax:     gridMax,
		Breakpoints: len(res.Breakpoints),
		Connections: len(res.Assignments),
		Crossings:   len(res.Crossings),
		Programs:    len(res.Programs),
		Files:       names,
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		log.Panicf("manifest marshal err: %v", err)
	}
	if err := os.WriteFile(filepath.Join(*outDir, "manifest.yaml"), data, 0o644); err != nil {
		log.Panicf("write manifest err: %v", err)
	}
	log.Infof("wrote %d files to %s", len(files)+1, *outDir)
}
