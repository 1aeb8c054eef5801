package app

import (
	"github.com/epigrid/epigridgo/internal/registry"
	"github.com/epigrid/epigridgo/modules/cases_deaths"
	"github.com/epigrid/epigridgo/modules/env_vars"
	"github.com/epigrid/epigridgo/modules/git_push"
	"github.com/epigrid/epigridgo/modules/http_client"
	"github.com/epigrid/epigridgo/modules/oxford_smooth"
	"github.com/epigrid/epigridgo/modules/print"
	"github.com/epigrid/epigridgo/modules/s3_client"
	"github.com/epigrid/epigridgo/modules/strain_prevalence"
	"github.com/epigrid/epigridgo/modules/vaccinations"
	"github.com/epigrid/epigridgo/modules/variant_export"
	"github.com/epigrid/epigridgo/modules/world_strains"
)

// coreModules is the definitive list of all modules that are compiled into
// the epigridgo binary.
var coreModules = []registry.Module{
	&env_vars.Module{},
	&print.Module{},
	&http_client.Module{},
	&s3_client.Module{},
	&cases_deaths.Module{},
	&strain_prevalence.Module{},
	&vaccinations.Module{},
	&oxford_smooth.Module{},
	&variant_export.Module{},
	&world_strains.Module{},
	&git_push.Module{},
}
