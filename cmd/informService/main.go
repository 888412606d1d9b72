package main

import (
	"github.com/airenas/spacego/internal/app/inform"
	"github.com/labstack/gommon/color"
)

func main() {
	printBanner()
	inform.Execute()
}

var (
	version string
)

func printBanner() {
	banner := `
   _________  ____ _________  ____ _____
  / ___/ __ \/ __ ` + "`" + `/ ___/ _ \/ __ ` + "`" + `/ __ \
 (__  ) /_/ / /_/ / /__/  __/ /_/ / /_/ /
/____/ .___/\__,_/\___/\___/\__, /\____/
    /_/                    /____/

 inform service v: %s
%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("github.com/airenas/spacego"))
}
