package main

var connFactories = []ConnFactory{
	&FTPConnFactory{},
	&SFTPConnFactory{},
	// add more
}

func getConnFactory(scheme string) ConnFactory {
	for _, factory := range connFactories {
		if factory.Accept(scheme) {
			return factory
		}
	}
	return nil
}
