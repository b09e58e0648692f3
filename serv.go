package main

import (
	"flag"
	"log"

	http "github.com/valyala/fasthttp"
)

func main() {
	conf := flag.String("conf", "./conf.json", "config file (.json or .toml)")
	flag.Parse()

	if err := LoadConfig(*conf); err != nil {
		log.Fatal(err)
	}

	srv := NewServer(GConf)

	log.Printf("Initialized")
	log.Printf("Serving on %s...", GConf.Listen)
	if err := http.ListenAndServe(GConf.Listen, srv.Handle); err != nil {
		log.Fatal(err)
	}
}
