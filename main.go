package main

import "employee-timesheet/cmd"

func main() {
	cmd.Execute()
}
