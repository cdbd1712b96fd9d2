package main

import (
	"context"
	"fmt"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/institution"
)

// addInstitution creates an institution and prints its id.
func (cli *commandLine) addInstitution(name, suffix string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	suffix = core.CleanString(suffix, true /* lower */)

	if err := cli.instRepo.CheckNameUniqueness(ctx, name); err != nil {
		return err
	}
	inst, err := cli.instRepo.CreateNew(ctx, institution.Mod{Name: name, URLSuffix: suffix})
	if err != nil {
		return err
	}
	fmt.Printf("created institution %q (id=%d)\n", inst.Name, inst.ID)
	return nil
}
