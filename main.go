/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/farmtrack/apiserver/cmd"

func main() {
	cmd.Execute()
}
