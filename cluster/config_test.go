package cluster

import (
	"github.com/dravaio/drava/cluster/mocks"
	"github.com/golang/mock/gomock"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(ConfigTestSuite))

type ConfigTestSuite struct {
}

func (s *ConfigTestSuite) TestMasterConfigValidation(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	origCfg := MasterConfig{
		ListenAddress: ":0",
		JobRunner:     mocks.NewMockRunner(ctrl),
		NumPartitions: 4,
	}

	cfg := origCfg
	c.Assert(cfg.Validate(), gc.IsNil)
	c.Assert(cfg.Logger, gc.Not(gc.IsNil), gc.Commentf("default logger was not assigned"))
	c.Assert(cfg.Clock, gc.Not(gc.IsNil), gc.Commentf("default clock was not assigned"))
	c.Assert(cfg.MaxAttempts, gc.Equals, 1, gc.Commentf("default attempt budget was not assigned"))

	cfg = origCfg
	cfg.ListenAddress = ""
	c.Assert(cfg.Validate(), gc.ErrorMatches, "(?ms).*listen address not specified.*")

	cfg = origCfg
	cfg.JobRunner = nil
	c.Assert(cfg.Validate(), gc.ErrorMatches, "(?ms).*job runner not specified.*")

	cfg = origCfg
	cfg.NumPartitions = 0
	c.Assert(cfg.Validate(), gc.ErrorMatches, "(?ms).*number of partitions not specified.*")

	cfg = origCfg
	cfg.CheckpointInterval = 4
	c.Assert(cfg.Validate(), gc.ErrorMatches, "(?ms).*checkpoint interval specified without a checkpoint store.*")
}

func (s *ConfigTestSuite) TestWorkerConfigValidation(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	origCfg := WorkerConfig{
		JobRunner: mocks.NewMockRunner(ctrl),
	}

	cfg := origCfg
	c.Assert(cfg.Validate(), gc.IsNil)
	c.Assert(cfg.Logger, gc.Not(gc.IsNil), gc.Commentf("default logger was not assigned"))

	cfg = origCfg
	cfg.JobRunner = nil
	c.Assert(cfg.Validate(), gc.ErrorMatches, "(?ms).*job runner not specified.*")
}
