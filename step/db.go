package step

import (
	"fmt"
)

const (
	// TblParticles is the name of the sql database table that contains
	// positions and values for particles for each iteration.
	TblParticles = "swarmparticles"
	// TblParticlesBest is the name of the sql database table that contains
	// each particle's personal best position at each iteration.
	TblParticlesBest = "swarmparticlesbest"
	// TblBest is the name of the sql database table that contains
	// the best position for the entire swarm at each iteration.
	TblBest = "swarmbest"
)

const xcols = ",x0 REAL,x1 REAL,x2 REAL"

func (c *Controller) initdb() error {
	if c.db == nil {
		return nil
	}

	for _, s := range []string{
		"CREATE TABLE IF NOT EXISTS " + TblParticles + " (run INTEGER, particle INTEGER, iter INTEGER, val REAL" + xcols + ");",
		"CREATE TABLE IF NOT EXISTS " + TblParticlesBest + " (run INTEGER, particle INTEGER, iter INTEGER, best REAL" + xcols + ");",
		"CREATE TABLE IF NOT EXISTS " + TblBest + " (run INTEGER, iter INTEGER, val REAL" + xcols + ");",
	} {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("step: creating trace tables: %w", err)
		}
	}
	return nil
}

// updateDb writes the state after the latest tick in a single transaction.
func (c *Controller) updateDb() (err error) {
	if c.db == nil {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("step: recording iteration %v: %w", c.completed, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			err = fmt.Errorf("step: recording iteration %v: %w", c.completed, err)
			return
		}
		err = tx.Commit()
	}()

	s0 := "INSERT INTO " + TblParticles + " (run,particle,iter,val,x0,x1,x2) VALUES (?,?,?,?,?,?,?);"
	s1 := "INSERT INTO " + TblParticlesBest + " (run,particle,iter,best,x0,x1,x2) VALUES (?,?,?,?,?,?,?);"
	for _, p := range c.swarm.Pop {
		if _, err := tx.Exec(s0, c.runs, p.Id, c.completed, p.Val, p.Pos.X, p.Pos.Y, p.Pos.Z); err != nil {
			return err
		}
		b := p.Best
		if _, err := tx.Exec(s1, c.runs, p.Id, c.completed, b.Val, b.Pos.X, b.Pos.Y, b.Pos.Z); err != nil {
			return err
		}
	}

	s2 := "INSERT INTO " + TblBest + " (run,iter,val,x0,x1,x2) VALUES (?,?,?,?,?,?);"
	glob := c.swarm.Best()
	_, err = tx.Exec(s2, c.runs, c.completed, glob.Val, glob.Pos.X, glob.Pos.Y, glob.Pos.Z)
	return err
}
