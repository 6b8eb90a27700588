package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core/student"
)

func (cli *commandLine) addStudent(ns student.NewStudent) error {
	if err := ns.Validate(cli.validate); err != nil {
		return err
	}
	s, err := cli.students.Create(context.Background(), ns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "student #%d %s created\n", s.ID, s.Name)
	return nil
}
