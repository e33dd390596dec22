package app

import (
	"github.com/vk/cmdgrid/internal/registry"
	"github.com/vk/cmdgrid/modules/env_vars"
	"github.com/vk/cmdgrid/modules/http_client"
	"github.com/vk/cmdgrid/modules/print"
	"github.com/vk/cmdgrid/modules/socketio"
)

// coreModules is the definitive list of all modules that are compiled into
// the cmdgrid binary.
var coreModules = []registry.Module{
	&env_vars.Module{},
	&print.Module{},
	&http_client.Module{},
	&socketio.Module{},
}
