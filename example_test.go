package schrodinger_test

import (
	"fmt"
	"log"

	"github.com/fumin/schrodinger"
)

func Example() {
	// A particle of unit mass in a box of unit width, with hbar = 1.
	const width = 1
	grid, err := schrodinger.InteriorGrid(0, width, 512)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	well := schrodinger.InfiniteWell{Width: width}
	sol, err := schrodinger.Solve(schrodinger.Problem{Hbar: 1, Mass: 1, Grid: grid, Potential: well})
	if err != nil {
		log.Fatalf("%+v", err)
	}

	// Compare with n^2 pi^2 / 2.
	for i, e := range well.Levels(3, 1, 1) {
		fmt.Printf("E[%d] = %.4f, exact %.4f\n", i+1, sol.States[i].Energy, e)
	}

	// Output:
	// E[1] = 4.9348, exact 4.9348
	// E[2] = 19.7390, exact 19.7392
	// E[3] = 44.4120, exact 44.4132
}
